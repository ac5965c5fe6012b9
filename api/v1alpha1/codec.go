package v1alpha1

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// DecodeStandList reads a StandList document. Unknown fields are rejected.
func DecodeStandList(r io.Reader) (*StandList, error) {
	var list StandList
	if err := decodeStrict(r, &list); err != nil {
		return nil, err
	}
	if err := list.Validate(); err != nil {
		return nil, err
	}
	return &list, nil
}

// DecodeVectorList reads a UtilizationVectorList document. Unknown fields are rejected.
func DecodeVectorList(r io.Reader) (*UtilizationVectorList, error) {
	var list UtilizationVectorList
	if err := decodeStrict(r, &list); err != nil {
		return nil, err
	}
	if err := list.Validate(); err != nil {
		return nil, err
	}
	return &list, nil
}

func decodeStrict(r io.Reader, out any) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if err == io.EOF {
			return fmt.Errorf("%w: empty document", ErrInvalid)
		}
		return fmt.Errorf("decoding document: %w", err)
	}
	return nil
}

// Encode writes doc to w as YAML.
func Encode(w io.Writer, doc any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	return enc.Close()
}
