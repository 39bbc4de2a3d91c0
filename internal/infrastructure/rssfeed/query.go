package rssfeed

import (
	"strings"
	"unicode"
)

// queryMatcher evaluates a NewsAPI-style boolean query against item text.
// Terms match whole words; a quoted phrase matches a run of consecutive words.
// Juxtaposed terms are joined with AND, as NewsAPI does.
type queryMatcher struct {
	root queryNode
}

type queryNode interface {
	eval(words []string) bool
}

type termNode struct{ words []string }

type andNode struct{ left, right queryNode }

type orNode struct{ left, right queryNode }

type notNode struct{ inner queryNode }

func (n termNode) eval(words []string) bool { return containsRun(words, n.words) }

func (n andNode) eval(words []string) bool { return n.left.eval(words) && n.right.eval(words) }

func (n orNode) eval(words []string) bool { return n.left.eval(words) || n.right.eval(words) }

func (n notNode) eval(words []string) bool { return !n.inner.eval(words) }

func parseQuery(q string) queryMatcher {
	p := &queryParser{tokens: tokenize(q)}
	var root queryNode
	for p.pos < len(p.tokens) {
		// A stray closing parenthesis ends parseOr early; skip it and keep going.
		if node := p.parseOr(); node != nil {
			root = join(root, node)
		}
		if p.peekOp(")") {
			p.pos++
		}
	}
	return queryMatcher{root: root}
}

func (m queryMatcher) matches(text string) bool {
	if m.root == nil {
		return true
	}
	return m.root.eval(words(text))
}

type queryToken struct {
	text   string
	quoted bool
}

type queryParser struct {
	tokens []queryToken
	pos    int
}

func (p *queryParser) peekOp(op string) bool {
	if p.pos >= len(p.tokens) {
		return false
	}
	tok := p.tokens[p.pos]
	return !tok.quoted && tok.text == op
}

// parseOr: and ("OR" and)*
func (p *queryParser) parseOr() queryNode {
	left := p.parseAnd()
	for p.peekOp("OR") {
		p.pos++
		right := p.parseAnd()
		switch {
		case left == nil:
			left = right
		case right != nil:
			left = orNode{left: left, right: right}
		}
	}
	return left
}

// parseAnd: unary (["AND"] unary)*
func (p *queryParser) parseAnd() queryNode {
	var left queryNode
	for p.pos < len(p.tokens) && !p.peekOp("OR") && !p.peekOp(")") {
		if p.peekOp("AND") {
			p.pos++
			continue
		}
		left = join(left, p.parseUnary())
	}
	return left
}

func (p *queryParser) parseUnary() queryNode {
	if p.peekOp("NOT") {
		p.pos++
		inner := p.parseUnary()
		if inner == nil {
			return nil
		}
		return notNode{inner: inner}
	}
	if p.pos >= len(p.tokens) || p.peekOp(")") || p.peekOp("OR") {
		return nil
	}

	if p.peekOp("(") {
		p.pos++
		inner := p.parseOr()
		if p.peekOp(")") {
			p.pos++
		}
		return inner
	}

	tok := p.tokens[p.pos]
	p.pos++
	if !tok.quoted && tok.text == "AND" {
		return nil
	}
	w := words(tok.text)
	if len(w) == 0 {
		return nil
	}
	return termNode{words: w}
}

func join(left, right queryNode) queryNode {
	switch {
	case left == nil:
		return right
	case right == nil:
		return left
	}
	return andNode{left: left, right: right}
}

// tokenize splits on whitespace, emits parentheses as operators and keeps
// quoted phrases whole.
func tokenize(q string) []queryToken {
	var (
		tokens  []queryToken
		current strings.Builder
		quoted  bool
	)
	flush := func(wasQuoted bool) {
		if current.Len() > 0 {
			tokens = append(tokens, queryToken{text: current.String(), quoted: wasQuoted})
			current.Reset()
		}
	}

	for _, r := range q {
		switch {
		case r == '"':
			flush(quoted)
			quoted = !quoted
		case quoted:
			current.WriteRune(r)
		case unicode.IsSpace(r):
			flush(false)
		case r == '(' || r == ')':
			flush(false)
			tokens = append(tokens, queryToken{text: string(r)})
		default:
			current.WriteRune(r)
		}
	}
	flush(quoted)
	return tokens
}

// words lowercases text and splits it into letter/digit runs.
func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func containsRun(haystack, needle []string) bool {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return false
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j, w := range needle {
			if haystack[i+j] != w {
				continue outer
			}
		}
		return true
	}
	return false
}
