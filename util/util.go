package util

import (
	"fmt"
	"log"
	"runtime/debug"

	"github.com/mitchellh/mapstructure"
)

// PanicHandler handles panic recovery and logging.
// It can be called directly with recover() without checking for nil first.
// Example usage:
//   defer func() {
//       util.PanicHandler("operation name", recover())
//   }()
func PanicHandler(debugStr string, recoverVal any) error {
	if recoverVal == nil {
		return nil
	}
	log.Printf("[panic] in %s: %v\n", debugStr, recoverVal)
	debug.PrintStack()
	if err, ok := recoverVal.(error); ok {
		return fmt.Errorf("panic in %s: %w", debugStr, err)
	}
	return fmt.Errorf("panic in %s: %v", debugStr, recoverVal)
}

// does a mapstructure using "json" tags
func DoMapStructure(out any, input any) error {
	dconfig := &mapstructure.DecoderConfig{
		Result:  out,
		TagName: "json",
	}
	decoder, err := mapstructure.NewDecoder(dconfig)
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// StructToMap converts a struct to a map using "json" tags (shallow, one level)
func StructToMap(in any) (map[string]any, error) {
	out := make(map[string]any)
	dconfig := &mapstructure.DecoderConfig{
		Result:  &out,
		TagName: "json",
	}
	decoder, err := mapstructure.NewDecoder(dconfig)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(in); err != nil {
		return nil, err
	}
	return out, nil
}

func AddElemToSliceUniq[T comparable](slice []T, elem T) []T {
	for _, e := range slice {
		if e == elem {
			return slice
		}
	}
	return append(slice, elem)
}

func RemoveElemFromSlice[T comparable](slice []T, elem T) []T {
	var rtn []T
	for _, e := range slice {
		if e == elem {
			continue
		}
		rtn = append(rtn, e)
	}
	return rtn
}
