package realizer

import "github.com/logicossoftware/go-slm"

func init() {
	slm.RegisterFormat(slm.Format{
		Name:        FormatName,
		Description: "compact binary record stream with a CRC-32 trailer",
		Extensions:  []string{".rea", ".realizer"},
		NewReader: func(opts ...slm.Option) (slm.Reader, error) {
			return NewReader(opts...)
		},
		NewWriter: func(opts ...slm.Option) (slm.Writer, error) {
			return NewWriter(opts...)
		},
	})
}
