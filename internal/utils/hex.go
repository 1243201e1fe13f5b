package utils

const (
	hexLower = "0123456789abcdef"
	hexUpper = "0123456789ABCDEF"
)

// CompanyID formats a Bluetooth SIG company identifier as "0xFFFF".
func CompanyID(v uint16) string {
	return string([]byte{
		'0', 'x',
		hexUpper[(v>>12)&0xF],
		hexUpper[(v>>8)&0xF],
		hexUpper[(v>>4)&0xF],
		hexUpper[v&0xF],
	})
}

// BytesToHex converts a byte slice to lowercase hex without separators,
// the form used for raw payload display.
func BytesToHex(b []byte) string {
	out := make([]byte, 0, len(b)*2)
	for _, x := range b {
		out = append(out, hexLower[x>>4], hexLower[x&0x0F])
	}
	return string(out)
}
