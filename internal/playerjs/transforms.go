// Package playerjs extracts the obfuscated transform functions embedded in a
// player script release and compiles them into executable units.
package playerjs

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dop251/goja"

	"github.com/famomatic/ytcore/errs"
)

const (
	jsVarStr   = "[a-zA-Z_\\$][a-zA-Z_0-9]*"
	reverseStr = ":function\\(a\\)\\{" +
		"(?:return )?a\\.reverse\\(\\)" +
		"\\}"
	spliceStr = ":function\\(a,b\\)\\{" +
		"a\\.splice\\(0,b\\)" +
		"\\}"
	swapStr = ":function\\(a,b\\)\\{" +
		"var c=a\\[0\\];a\\[0\\]=a\\[b(?:%a\\.length)?\\];a\\[b(?:%a\\.length)?\\]=c(?:;return a)?" +
		"\\}"
)

var (
	actionsObjRegexp = regexp.MustCompile(fmt.Sprintf(
		"(?:var|let|const)\\s+(%s)=\\{\\s*((?:(?:%s%s|%s%s|%s%s),?\\s*)+)\\}\\s*;?",
		jsVarStr, jsVarStr, swapStr, jsVarStr, spliceStr, jsVarStr, reverseStr))
	reverseRegexp      = regexp.MustCompile(fmt.Sprintf("(?m)(?:^|,)(%s)%s", jsVarStr, reverseStr))
	spliceRegexp       = regexp.MustCompile(fmt.Sprintf("(?m)(?:^|,)(%s)%s", jsVarStr, spliceStr))
	swapRegexp         = regexp.MustCompile(fmt.Sprintf("(?m)(?:^|,)(%s)%s", jsVarStr, swapStr))
	actionsFuncRegexps = []*regexp.Regexp{
		// function XX(a){...}
		regexp.MustCompile(fmt.Sprintf(
			"function(?:\\s+%s)?\\(a\\)\\{"+
				"a=a\\.split\\([^\\)]*\\);\\s*"+
				"((?:(?:a=)?%s(?:\\.%s|\\[[^\\]]+\\])\\(a,\\d+\\);?\\s*)+)"+
				"return a\\.join\\([^\\)]*\\)"+
				"\\}", jsVarStr, jsVarStr, jsVarStr)),
		// XX=function(a){...}
		regexp.MustCompile(fmt.Sprintf(
			"%s\\s*=\\s*function\\(a\\)\\{"+
				"a=a\\.split\\([^\\)]*\\);\\s*"+
				"((?:(?:a=)?%s(?:\\.%s|\\[[^\\]]+\\])\\(a,\\d+\\);?\\s*)+)"+
				"return a\\.join\\([^\\)]*\\)"+
				"\\}", jsVarStr, jsVarStr, jsVarStr)),
	}

	nFunctionNameRegexps = []*regexp.Regexp{
		regexp.MustCompile(`\.get\("n"\)\)&&\(b=([a-zA-Z0-9$]{0,3})\[(\d+)\](.+)\|\|([a-zA-Z0-9]{0,3})`),
		// Legacy pattern: b=XY[0](b)||ZZ
		regexp.MustCompile(`\.get\("n"\)\)\s*&&\s*\(b=([a-zA-Z0-9$]{1,})\[(\d+)\]\([a-zA-Z0-9$]{1,}\).+\|\|([a-zA-Z0-9$]{1,})`),
		// Newer pattern: b=XY(b)
		regexp.MustCompile(`\.get\("n"\)\)\s*&&\s*\(b=([a-zA-Z0-9$]{1,})\([a-zA-Z0-9$]{1,}\)`),
		// Some variants use optional chaining / looser spacing.
		regexp.MustCompile(`\.get\("n"\).*?&&.*?([a-zA-Z0-9$]{1,})\([a-zA-Z0-9$]{1,}\)`),
	}

	timestampRegexp = regexp.MustCompile(`(?i)(?:signatureTimestamp|sts)\s*:\s*(\d{4,6})`)
)

// Transforms holds the executable units compiled from one player release.
// Both units are re-entrant and side-effect-free: the same input always
// yields the same output.
type Transforms struct {
	sigOps  []signatureOp
	sigErr  error
	nSource string
	nProg   *goja.Program
	nErr    error

	// Timestamp is the release's signature timestamp, sent back to the
	// provider in player requests.
	Timestamp int
}

// Compile locates the decipher and n-transform functions inside body. A unit
// that cannot be located leaves the corresponding Transforms capability
// unavailable rather than failing the compilation outright.
func Compile(body []byte) *Transforms {
	t := &Transforms{}
	t.sigOps, t.sigErr = parseSignatureOps(body)
	t.nSource, t.nErr = extractNFunction(body)
	if t.nErr == nil {
		t.nProg, t.nErr = goja.Compile("ntransform.js", "var "+nWrapperName+"="+t.nSource, false)
	}
	if m := timestampRegexp.FindSubmatch(body); len(m) > 1 {
		t.Timestamp, _ = strconv.Atoi(string(m[1]))
	}
	return t
}

// SignatureSupported reports whether the decipher unit was extracted.
func (t *Transforms) SignatureSupported() bool { return t.sigErr == nil }

// NSupported reports whether the n-transform unit was extracted.
func (t *Transforms) NSupported() bool { return t.nErr == nil }

// DecodeSignature runs the decipher unit on a raw signature value.
func (t *Transforms) DecodeSignature(sig string) (string, error) {
	if t.sigErr != nil {
		return "", t.sigErr
	}
	bs := []byte(sig)
	for _, op := range t.sigOps {
		bs = op(bs)
	}
	return string(bs), nil
}

const nWrapperName = "__ytcoreNTransform"

// TransformN runs the n-transform unit on an anti-throttling token. Each call
// uses a fresh VM so extracted code cannot carry state between invocations.
func (t *Transforms) TransformN(n string) (string, error) {
	if t.nErr != nil {
		return "", t.nErr
	}
	vm := goja.New()
	if _, err := vm.RunProgram(t.nProg); err != nil {
		return "", fmt.Errorf("load n-transform: %w", err)
	}
	var fn func(string) string
	if err := vm.ExportTo(vm.Get(nWrapperName), &fn); err != nil {
		return "", fmt.Errorf("bind n-transform: %w", err)
	}
	return fn(n), nil
}

func parseSignatureOps(body []byte) ([]signatureOp, error) {
	objResult := actionsObjRegexp.FindSubmatch(body)
	funcBody := findActionsFuncBody(body)
	if len(objResult) < 3 || len(funcBody) == 0 {
		return nil, &errs.ExtractionError{What: fmt.Sprintf("signature tokens (#obj=%d, #func=%d)", len(objResult), len(funcBody))}
	}

	obj := objResult[1]
	objBody := objResult[2]

	var reverseKey, spliceKey, swapKey string
	if result := reverseRegexp.FindSubmatch(objBody); len(result) > 1 {
		reverseKey = string(result[1])
	}
	if result := spliceRegexp.FindSubmatch(objBody); len(result) > 1 {
		spliceKey = string(result[1])
	}
	if result := swapRegexp.FindSubmatch(objBody); len(result) > 1 {
		swapKey = string(result[1])
	}

	regex, err := regexp.Compile(fmt.Sprintf(
		"(?:a=)?%s(?:\\.(%s|%s|%s)|\\[(?:\"(%s|%s|%s)\"|'(%s|%s|%s)')\\])\\(a,(\\d+)\\)",
		regexp.QuoteMeta(string(obj)),
		regexp.QuoteMeta(reverseKey),
		regexp.QuoteMeta(spliceKey),
		regexp.QuoteMeta(swapKey),
		regexp.QuoteMeta(reverseKey),
		regexp.QuoteMeta(spliceKey),
		regexp.QuoteMeta(swapKey),
		regexp.QuoteMeta(reverseKey),
		regexp.QuoteMeta(spliceKey),
		regexp.QuoteMeta(swapKey),
	))
	if err != nil {
		return nil, err
	}

	var ops []signatureOp
	for _, s := range regex.FindAllSubmatch(funcBody, -1) {
		if len(s) < 5 {
			continue
		}
		key := firstNonEmptySubmatch(s[1], s[2], s[3])
		arg, _ := strconv.Atoi(string(s[4]))
		switch key {
		case reverseKey:
			ops = append(ops, reverseOp)
		case swapKey:
			ops = append(ops, newSwapOp(arg))
		case spliceKey:
			ops = append(ops, newSpliceOp(arg))
		}
	}
	if len(ops) == 0 {
		return nil, &errs.ExtractionError{What: "signature operations (empty op list)"}
	}
	return ops, nil
}

func findActionsFuncBody(body []byte) []byte {
	for _, re := range actionsFuncRegexps {
		if m := re.FindSubmatch(body); len(m) > 1 {
			return m[1]
		}
	}
	return nil
}

func extractNFunction(body []byte) (string, error) {
	for _, re := range nFunctionNameRegexps {
		nameResult := re.FindSubmatch(body)
		if len(nameResult) == 0 {
			continue
		}

		switch len(nameResult) {
		case 5:
			// Pattern with explicit fallback symbol in group 4.
			if idx, err := strconv.Atoi(string(nameResult[2])); err == nil && idx == 0 {
				return extractFunctionBody(body, string(nameResult[4]))
			}
			return extractFunctionBody(body, string(nameResult[1]))
		case 4:
			// Legacy pattern with indexed function and fallback symbol.
			if idx, err := strconv.Atoi(string(nameResult[2])); err == nil && idx == 0 {
				return extractFunctionBody(body, string(nameResult[3]))
			}
			return extractFunctionBody(body, string(nameResult[1]))
		default:
			// Direct call pattern.
			return extractFunctionBody(body, string(nameResult[1]))
		}
	}
	return "", &errs.ExtractionError{What: "n-transform function name"}
}

// extractFunctionBody finds the named function definition and walks matched
// braces (string literals excluded) to its end.
func extractFunctionBody(body []byte, name string) (string, error) {
	name = strings.TrimSpace(name)
	defPatterns := [][]byte{
		[]byte(name + "=function("),
		[]byte(name + " = function("),
		[]byte("function " + name + "("),
	}
	start := -1
	for _, def := range defPatterns {
		start = bytes.Index(body, def)
		if start >= 0 {
			break
		}
	}
	if start < 0 {
		return "", &errs.ExtractionError{What: "n-transform function body"}
	}

	pos := start + bytes.IndexByte(body[start:], '{') + 1
	var strChar byte
	for brackets := 1; brackets > 0; pos++ {
		if pos >= len(body) {
			return "", &errs.ExtractionError{What: "unterminated n-transform function body"}
		}
		b := body[pos]
		switch b {
		case '{':
			if strChar == 0 {
				brackets++
			}
		case '}':
			if strChar == 0 {
				brackets--
			}
		case '`', '"', '\'':
			if pos > 1 && body[pos-1] == '\\' && body[pos-2] != '\\' {
				continue
			}
			if strChar == 0 {
				strChar = b
			} else if strChar == b {
				strChar = 0
			}
		}
	}
	source := string(body[start:pos])
	if !strings.HasPrefix(source, "function") {
		// Strip the "name=" assignment prefix so the source is a bare
		// function expression.
		if eq := strings.IndexByte(source, '='); eq >= 0 {
			source = strings.TrimSpace(source[eq+1:])
		}
	}
	return source, nil
}

func firstNonEmptySubmatch(groups ...[]byte) string {
	for _, g := range groups {
		if len(g) > 0 {
			return string(g)
		}
	}
	return ""
}
