package mtt

import "github.com/logicossoftware/go-slm"

// FormatName is the registry name of the format.
const FormatName = "mtt"

func init() {
	slm.RegisterFormat(slm.Format{
		Name:        FormatName,
		Description: "binary toolpath table with a layer index and compressed sections",
		Extensions:  []string{".mtt"},
		NewReader: func(opts ...slm.Option) (slm.Reader, error) {
			return NewReader(opts...)
		},
		NewWriter: func(opts ...slm.Option) (slm.Writer, error) {
			return NewWriter(opts...)
		},
	})
}
