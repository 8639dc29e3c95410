// Package pdfmeta implements simpledocs.DocumentCodec on top of pdfcpu. Only
// the document information dictionary is touched; page content is written
// back as parsed.
package pdfmeta

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/tendant/simple-docs/pkg/simpledocs"
)

func init() {
	// No user config dir or fonts are needed to rewrite metadata.
	api.DisableConfigDir()
}

// Codec parses PDFs into editable documents
type Codec struct {
	conf *model.Configuration
}

// New creates a codec using pdfcpu's relaxed validation mode, which accepts
// the small PDF standard violations common in real-world files.
func New() *Codec {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Codec{conf: conf}
}

// Parse reads and validates data as a PDF
func (c *Codec) Parse(data []byte) (simpledocs.Document, error) {
	if len(data) == 0 {
		return nil, errors.New("empty document")
	}

	ctx, err := api.ReadContext(bytes.NewReader(data), c.conf)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, fmt.Errorf("validate pdf: %w", err)
	}
	if err := api.OptimizeContext(ctx); err != nil {
		return nil, fmt.Errorf("optimize pdf: %w", err)
	}
	return &document{ctx: ctx}, nil
}

type document struct {
	ctx *model.Context
}

// info returns the document information dictionary, creating it if absent
func (d *document) info() (types.Dict, error) {
	if d.ctx.Info == nil {
		dict := types.NewDict()
		ir, err := d.ctx.IndRefForNewObject(dict)
		if err != nil {
			return nil, err
		}
		d.ctx.Info = ir
		return dict, nil
	}

	dict, err := d.ctx.DereferenceDict(*d.ctx.Info)
	if err != nil {
		return nil, err
	}
	if dict == nil {
		return nil, errors.New("info dictionary is not a dictionary")
	}
	return dict, nil
}

func (d *document) SetField(name, value string) error {
	dict, err := d.info()
	if err != nil {
		return fmt.Errorf("info dict: %w", err)
	}
	dict[name] = encodeText(value)
	return nil
}

func (d *document) Field(name string) (string, bool) {
	dict, err := d.info()
	if err != nil {
		return "", false
	}

	switch v := dict[name].(type) {
	case types.StringLiteral:
		s, err := types.StringLiteralToString(v)
		return s, err == nil
	case types.HexLiteral:
		s, err := types.HexLiteralToString(v)
		return s, err == nil
	}
	return "", false
}

func (d *document) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := api.WriteContext(d.ctx, &buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// encodeText encodes a PDF text string: a literal for printable ASCII,
// otherwise UTF-16BE with a byte order mark as a hex string.
func encodeText(s string) types.Object {
	if isPrintableASCII(s) {
		return types.StringLiteral(escapeLiteral(s))
	}

	units := utf16.Encode([]rune(s))
	b := make([]byte, 0, 2+2*len(units))
	b = append(b, 0xFE, 0xFF)
	for _, u := range units {
		b = append(b, byte(u>>8), byte(u))
	}
	return types.NewHexLiteral(b)
}

func isPrintableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7E {
			return false
		}
	}
	return true
}

var literalEscaper = strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)

func escapeLiteral(s string) string {
	return literalEscaper.Replace(s)
}
