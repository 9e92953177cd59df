// Package eos reads and writes ASCII common layer interface files in the
// dialect produced by EOS build processors:
//
//	$$HEADERSTART
//	$$ASCII
//	$$UNITS/1
//	$$VERSION/200
//	$$LAYERS/1
//	$$LABEL/1,"part"
//	$$HEADEREND
//	$$GEOMETRYSTART
//	$$LAYER/0.03
//	$$POLYLINE/1,0,4,0,0,10,0,10,10,0,0
//	$$HATCHES/1,1,0,5,10,5
//	$$POINTS/1,1,5,5
//	$$GEOMETRYEND
//
// The geometry id of every command is the model id. CLI carries no laser
// parameters, so models read from a file own no build styles and geometry
// bids are 0. Writing such a document back requires styles to be attached
// first.
package eos
