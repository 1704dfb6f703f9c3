package pyast

import (
	"serpent/interpreter-go/pkg/ast"
	"serpent/interpreter-go/pkg/runtime"
)

// AttachLocation writes lineno and col_offset onto obj. Conversion back to
// a typed node never reads them, so a round trip drops locations.
func AttachLocation(obj *runtime.Object, loc ast.Location) error {
	if err := obj.Dict.SetStr("lineno", runtime.NewInt(int64(loc.Row))); err != nil {
		return err
	}
	return obj.Dict.SetStr("col_offset", runtime.NewInt(int64(loc.Column)))
}
