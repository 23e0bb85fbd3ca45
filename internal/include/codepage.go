package include

import (
	"golang.org/x/text/encoding/charmap"
)

// DecodeLocal decodes an include name that was lexed from a file without a
// UTF-8 BOM, per §4.1's "otherwise the local code page applies". Ill-formed
// sequences are not rejected: charmap.Windows1252 maps every byte, matching
// the spec's "must not reject ill-formed sequences".
func DecodeLocal(raw []byte) string {
	out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}
