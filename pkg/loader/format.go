package loader

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/makistry/meshview/pkg/glb"
)

// Format selects the decoder for a source
type Format string

const (
	// FormatAuto detects the format from the URL extension, then the content
	FormatAuto Format = ""
	// FormatSTL is the raw-triangle surface format
	FormatSTL Format = "stl"
	// FormatGLB is binary glTF
	FormatGLB Format = "glb"
)

// ParseFormat converts a user supplied name into a Format
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "", "auto":
		return FormatAuto, nil
	case "stl":
		return FormatSTL, nil
	case "glb", "gltf":
		return FormatGLB, nil
	}
	return FormatAuto, fmt.Errorf("unknown format %q (expected stl, glb or auto)", name)
}

func (f Format) String() string {
	if f == FormatAuto {
		return "auto"
	}
	return string(f)
}

// formatFromURL infers the format from the path extension
func formatFromURL(raw string) Format {
	p := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		p = u.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".stl":
		return FormatSTL
	case ".glb", ".gltf":
		return FormatGLB
	}
	return FormatAuto
}

// detectFormat resolves FormatAuto. An explicit format wins, then the URL
// extension, then the content.
func detectFormat(explicit Format, raw string, data []byte) Format {
	if explicit != FormatAuto {
		return explicit
	}
	if f := formatFromURL(raw); f != FormatAuto {
		return f
	}
	if glb.IsGLB(data) {
		return FormatGLB
	}
	return FormatSTL
}
