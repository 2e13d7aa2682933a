package shortener

import (
	"regexp"

	"github.com/jaevor/go-nanoid"
)

const (
	CodeLength = 6
	Alphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

var (
	codePattern = regexp.MustCompile(`^[A-Za-z0-9]{6}$`)
	pathPattern = regexp.MustCompile(`(?:^|/)([A-Za-z0-9]{6})/?$`)
)

// reservedCodes are code-shaped paths served by fixed routes. A short link
// with one of these codes could never be visited.
var reservedCodes = map[Code]struct{}{
	"health": {},
	"wallet": {},
}

// IsReserved reports whether code collides with a fixed route.
func IsReserved(code Code) bool {
	_, ok := reservedCodes[code]

	return ok
}

// CodeGenerator returns a fresh candidate code on every call.
type CodeGenerator func() string

// NewCodeGenerator draws codes uniformly from Alphabet using crypto/rand.
func NewCodeGenerator() (CodeGenerator, error) {
	gen, err := nanoid.CustomASCII(Alphabet, CodeLength)
	if err != nil {
		return nil, err
	}

	return CodeGenerator(gen), nil
}

// IsValidCode reports whether s has the shape of a short code.
func IsValidCode(s string) bool {
	return codePattern.MatchString(s)
}

// CodeFromPath extracts a short code from the trailing segment of path.
// The whole segment must be a code; "/toolong7" has none.
func CodeFromPath(path string) (Code, bool) {
	m := pathPattern.FindStringSubmatch(path)
	if m == nil {
		return "", false
	}

	return Code(m[1]), true
}
