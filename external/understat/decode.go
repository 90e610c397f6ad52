package understat

import (
	"bytes"
	"fmt"
	"strconv"

	sonic "github.com/bytedance/sonic"
	"github.com/valyala/bytebufferpool"
)

var jsonParseOpen = []byte("JSON.parse('")

// pageVar binds a script variable of an Understat HTML page to its decode target.
type pageVar struct {
	name   string
	target any
}

// decodePayload decodes a JSON response body into target. HTML pages are
// accepted too: each var is then read from its `var <name> = JSON.parse('...')`
// script block.
func decodePayload(raw []byte, target any, vars ...pageVar) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		if err := sonic.Unmarshal(trimmed, target); err != nil {
			return fmt.Errorf("decode understat json: %w", err)
		}
		return nil
	}

	if len(vars) == 0 {
		return fmt.Errorf("understat response is not json")
	}
	for _, v := range vars {
		payload, err := extractJSONParse(raw, v.name)
		if err != nil {
			return err
		}
		if err := sonic.Unmarshal(payload, v.target); err != nil {
			return fmt.Errorf("decode understat %s: %w", v.name, err)
		}
	}
	return nil
}

func extractJSONParse(page []byte, varName string) ([]byte, error) {
	marker := []byte("var " + varName)
	start := bytes.Index(page, marker)
	if start < 0 {
		return nil, fmt.Errorf("understat page has no %s block", varName)
	}
	rest := page[start+len(marker):]

	open := bytes.Index(rest, jsonParseOpen)
	if open < 0 {
		return nil, fmt.Errorf("understat %s block has no JSON.parse call", varName)
	}
	rest = rest[open+len(jsonParseOpen):]

	end := findLiteralEnd(rest)
	if end < 0 {
		return nil, fmt.Errorf("understat %s block is not terminated", varName)
	}
	return unescapeJSLiteral(rest[:end])
}

// findLiteralEnd returns the index of the closing quote of a single-quoted JS
// string, skipping escaped characters.
func findLiteralEnd(s []byte) int {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '\'':
			return i
		}
	}
	return -1
}

func unescapeJSLiteral(s []byte) ([]byte, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			_ = buf.WriteByte(c)
			continue
		}
		if i+1 >= len(s) {
			return nil, fmt.Errorf("dangling escape at offset %d", i)
		}
		i++
		switch s[i] {
		case 'x':
			if i+2 >= len(s) {
				return nil, fmt.Errorf("short \\x escape at offset %d", i)
			}
			v, err := strconv.ParseUint(string(s[i+1:i+3]), 16, 8)
			if err != nil {
				return nil, fmt.Errorf("invalid \\x escape at offset %d: %w", i, err)
			}
			_ = buf.WriteByte(byte(v))
			i += 2
		case 'u':
			if i+4 >= len(s) {
				return nil, fmt.Errorf("short \\u escape at offset %d", i)
			}
			v, err := strconv.ParseUint(string(s[i+1:i+5]), 16, 16)
			if err != nil {
				return nil, fmt.Errorf("invalid \\u escape at offset %d: %w", i, err)
			}
			_, _ = buf.WriteString(string(rune(v)))
			i += 4
		case 'n':
			_ = buf.WriteByte('\n')
		case 't':
			_ = buf.WriteByte('\t')
		case 'r':
			_ = buf.WriteByte('\r')
		default:
			_ = buf.WriteByte(s[i])
		}
	}

	return append([]byte(nil), buf.B...), nil
}
