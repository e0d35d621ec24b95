package otl

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// ParseFeatureFile parses feature-definition text into feature blocks. Only
// the statement forms that this package itself emits are recognized: single
// and ligature substitutions, contextual substitutions with one marked glyph,
// single positioning, and pair kerning. Comments start with # and run to the
// end of the line.
func ParseFeatureFile(b []byte) ([]FeatureBlock, error) {
	var blocks []FeatureBlock
	var tag string
	var rules []Rule

	scanner := bufio.NewScanner(bytes.NewReader(b))
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if i := strings.IndexByte(text, '#'); i != -1 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		if strings.HasPrefix(text, "feature ") {
			if tag != "" {
				return nil, CompileError{Tag: tag, Line: line, Msg: "feature block not closed"}
			}
			rest := strings.TrimSpace(text[len("feature "):])
			if !strings.HasSuffix(rest, "{") {
				return nil, CompileError{Line: line, Msg: "expected { after feature tag"}
			}
			tag = strings.TrimSpace(rest[:len(rest)-1])
			if len(tag) != 4 {
				return nil, CompileError{Line: line, Msg: fmt.Sprintf("bad feature tag: %s", tag)}
			}
			rules = nil
			continue
		}
		if strings.HasPrefix(text, "}") {
			if tag == "" {
				return nil, CompileError{Line: line, Msg: "unexpected }"}
			}
			closing := strings.TrimSuffix(strings.TrimSpace(text[1:]), ";")
			if strings.TrimSpace(closing) != tag {
				return nil, CompileError{Tag: tag, Line: line, Msg: fmt.Sprintf("mismatched closing tag: %s", closing)}
			}
			blocks = append(blocks, FeatureBlock{Tag: tag, Rules: rules, Status: Active})
			tag = ""
			continue
		}
		if tag == "" {
			return nil, CompileError{Line: line, Msg: fmt.Sprintf("statement outside feature block: %s", text)}
		}

		rule, err := parseStatement(tag, line, text)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if tag != "" {
		return nil, CompileError{Tag: tag, Line: line, Msg: "feature block not closed"}
	}
	return blocks, nil
}

// feaToken is a glyph name, a bracketed glyph class, or a keyword. Exactly
// one token of a contextual substitution carries the mark.
type feaToken struct {
	Text   string
	Class  []string
	Marked bool
}

func parseStatement(tag string, line int, text string) (Rule, error) {
	if !strings.HasSuffix(text, ";") {
		return nil, CompileError{Tag: tag, Line: line, Msg: "missing ; at end of statement"}
	}
	tokens, err := tokenize(tag, line, text[:len(text)-1])
	if err != nil {
		return nil, err
	} else if len(tokens) == 0 {
		return nil, CompileError{Tag: tag, Line: line, Msg: "empty statement"}
	}

	switch tokens[0].Text {
	case "sub", "substitute":
		return parseSub(tag, line, tokens[1:])
	case "pos", "position":
		return parsePos(tag, line, tokens[1:])
	}
	return nil, CompileError{Tag: tag, Line: line, Msg: fmt.Sprintf("unsupported statement: %s", tokens[0].Text)}
}

func tokenize(tag string, line int, text string) ([]feaToken, error) {
	var tokens []feaToken
	fields := strings.Fields(text)
	for i := 0; i < len(fields); i++ {
		field := fields[i]
		if strings.HasPrefix(field, "[") {
			class := []string{}
			closed := false
			for ; i < len(fields); i++ {
				name := strings.TrimPrefix(fields[i], "[")
				if strings.HasSuffix(name, "]") {
					name = strings.TrimSuffix(name, "]")
					closed = true
				}
				if name != "" {
					class = append(class, name)
				}
				if closed {
					break
				}
			}
			if !closed {
				return nil, CompileError{Tag: tag, Line: line, Msg: "unclosed glyph class"}
			}
			tokens = append(tokens, feaToken{Class: class})
			continue
		}
		token := feaToken{Text: field}
		if strings.HasSuffix(field, "'") {
			token.Text = field[:len(field)-1]
			token.Marked = true
		}
		tokens = append(tokens, token)
	}
	return tokens, nil
}

func parseSub(tag string, line int, tokens []feaToken) (Rule, error) {
	by := -1
	for i, token := range tokens {
		if token.Class == nil && token.Text == "by" {
			by = i
			break
		}
	}
	if by == -1 || len(tokens)-by != 2 || tokens[by+1].Class != nil {
		return nil, CompileError{Tag: tag, Line: line, Msg: "expected: sub ... by glyph;"}
	}
	input, to := tokens[:by], tokens[by+1].Text

	marked := -1
	for i, token := range tokens[:by] {
		if token.Marked {
			if marked != -1 {
				return nil, CompileError{Tag: tag, Line: line, Msg: "more than one marked glyph"}
			}
			marked = i
		}
	}

	if marked == -1 {
		names := make([]string, len(input))
		for i, token := range input {
			if token.Class != nil {
				return nil, CompileError{Tag: tag, Line: line, Msg: "glyph class requires a marked glyph"}
			}
			names[i] = token.Text
		}
		if len(names) == 0 {
			return nil, CompileError{Tag: tag, Line: line, Msg: "empty substitution input"}
		} else if len(names) == 1 {
			return SingleSubst{From: names[0], To: to}, nil
		}
		return LigatureSubst{Components: names, Result: to}, nil
	}

	if input[marked].Class != nil {
		return nil, CompileError{Tag: tag, Line: line, Msg: "marked glyph cannot be a class"}
	}
	if marked == 1 && len(input) == 2 && input[0].Class != nil {
		return ClassSubst{Class: input[0].Class, From: input[1].Text, To: to}, nil
	}
	var prefix, suffix []string
	for i, token := range input {
		if i == marked {
			continue
		}
		if token.Class != nil {
			return nil, CompileError{Tag: tag, Line: line, Msg: "glyph class only supported as single preceding context"}
		}
		if i < marked {
			prefix = append(prefix, token.Text)
		} else {
			suffix = append(suffix, token.Text)
		}
	}
	return ChainSubst{Prefix: prefix, From: input[marked].Text, Suffix: suffix, To: to}, nil
}

func parsePos(tag string, line int, tokens []feaToken) (Rule, error) {
	for _, token := range tokens {
		if token.Class != nil {
			return nil, CompileError{Tag: tag, Line: line, Msg: "glyph classes not supported in positioning"}
		}
	}
	if 2 <= len(tokens) && strings.HasPrefix(tokens[1].Text, "<") {
		// pos glyph <xPlacement yPlacement xAdvance yAdvance>;
		values := make([]string, 0, 4)
		for _, token := range tokens[1:] {
			values = append(values, strings.TrimSuffix(strings.TrimPrefix(token.Text, "<"), ">"))
		}
		if len(values) != 4 {
			return nil, CompileError{Tag: tag, Line: line, Msg: "value record needs four values"}
		}
		record := [4]int16{}
		for i, s := range values {
			v, err := strconv.ParseInt(s, 10, 16)
			if err != nil {
				return nil, CompileError{Tag: tag, Line: line, Msg: fmt.Sprintf("bad value: %s", s)}
			}
			record[i] = int16(v)
		}
		return SinglePos{
			Glyph:      tokens[0].Text,
			XPlacement: record[0],
			YPlacement: record[1],
			XAdvance:   record[2],
			YAdvance:   record[3],
		}, nil
	}
	if len(tokens) == 3 {
		v, err := strconv.ParseInt(tokens[2].Text, 10, 16)
		if err != nil {
			return nil, CompileError{Tag: tag, Line: line, Msg: fmt.Sprintf("bad kerning value: %s", tokens[2].Text)}
		}
		return PairKern{Left: tokens[0].Text, Right: tokens[1].Text, XAdvance: int16(v)}, nil
	}
	return nil, CompileError{Tag: tag, Line: line, Msg: "unsupported positioning statement"}
}
