package eos

import "github.com/logicossoftware/go-slm"

// FormatName is the registry name of the format.
const FormatName = "eos"

func init() {
	slm.RegisterFormat(slm.Format{
		Name:        FormatName,
		Description: "EOS-style ASCII common layer interface",
		Extensions:  []string{".cli", ".eos"},
		NewReader: func(opts ...slm.Option) (slm.Reader, error) {
			return NewReader(opts...)
		},
		NewWriter: func(opts ...slm.Option) (slm.Writer, error) {
			return NewWriter(opts...)
		},
	})
}
