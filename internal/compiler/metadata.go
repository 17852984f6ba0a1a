package compiler

import (
	"strconv"

	"github.com/solatis/browscap/internal/types"
)

// ExtractMetadata reads the version section of text. Missing or unparsable
// fields are left zero; a dataset without a version section still compiles.
func ExtractMetadata(text string) (types.Metadata, error) {
	var meta types.Metadata
	sections, err := Parse(text)
	if err != nil {
		return meta, err
	}
	for _, sec := range sections {
		if sec.Header != types.VersionSection {
			continue
		}
		pairs, err := ParseBlock(sec.Block)
		if err != nil {
			return meta, err
		}
		for _, p := range pairs {
			switch p.Key {
			case "Version":
				if v, err := strconv.Atoi(p.Value); err == nil {
					meta.Version = v
				}
			case "Released":
				meta.ReleaseDate = p.Value
			case "Type":
				meta.Type = p.Value
			case "Format":
				meta.Format = p.Value
			}
		}
		break
	}
	return meta, nil
}

// Metadata extracts the version section and records this compiler's prefix
// length.
func (c *Compiler) Metadata(text string) (types.Metadata, error) {
	meta, err := ExtractMetadata(text)
	if err != nil {
		return meta, err
	}
	meta.PrefixLength = c.prefixLength
	return meta, nil
}
