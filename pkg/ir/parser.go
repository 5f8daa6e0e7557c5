package ir

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// knownOpcodes is the set of interior instruction opcodes the loader
// accepts. Anything outside this set fails the file with an
// UnsupportedError rather than being silently dropped.
var knownOpcodes = map[string]bool{
	"add": true, "sub": true, "mul": true,
	"udiv": true, "sdiv": true, "urem": true, "srem": true,
	"fadd": true, "fsub": true, "fmul": true, "fdiv": true, "frem": true, "fneg": true,
	"and": true, "or": true, "xor": true,
	"shl": true, "lshr": true, "ashr": true,
	"load": true, "store": true, "alloca": true, "getelementptr": true,
	"fence": true, "cmpxchg": true, "atomicrmw": true,
	"icmp": true, "fcmp": true, "phi": true, "select": true, "call": true,
	"trunc": true, "zext": true, "sext": true,
	"fptrunc": true, "fpext": true, "fptoui": true, "fptosi": true,
	"uitofp": true, "sitofp": true, "ptrtoint": true, "inttoptr": true,
	"bitcast": true, "addrspacecast": true, "freeze": true,
	"extractelement": true, "insertelement": true, "shufflevector": true,
	"extractvalue": true, "insertvalue": true,
	"va_arg": true,
}

// unsupportedTerminators are valid IR control transfers the analyzer
// has no timing model for.
var unsupportedTerminators = map[string]bool{
	"invoke": true, "callbr": true, "indirectbr": true, "resume": true,
	"catchswitch": true, "catchret": true, "cleanupret": true,
}

// defineAttrWords are tokens that may appear between "define" and the
// return type; they carry no information the loader keeps.
var defineAttrWords = map[string]bool{
	"private": true, "internal": true, "external": true, "linkonce": true,
	"linkonce_odr": true, "weak": true, "weak_odr": true, "common": true,
	"appending": true, "extern_weak": true, "available_externally": true,
	"dso_local": true, "dso_preemptable": true,
	"hidden": true, "protected": true, "default": true,
	"ccc": true, "fastcc": true, "coldcc": true, "tailcc": true,
	"zeroext": true, "signext": true, "noundef": true, "inreg": true,
	"noalias": true, "nonnull": true, "local_unnamed_addr": true,
	"unnamed_addr": true,
}

// Load parses a textual LLVM IR file into a Module. The parse is
// all-or-nothing: any construct the loader cannot handle fails the
// whole file.
func Load(path string) (*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	return parse(path, string(data))
}

// Skipped records a file the batch loader could not parse.
type Skipped struct {
	Path string
	Err  error
}

// LoadBatch maps a list of paths to modules, skipping files that fail
// to load. Modules come back in input order.
func LoadBatch(paths []string) ([]*Module, []Skipped) {
	var modules []*Module
	var skipped []Skipped
	for _, p := range paths {
		m, err := Load(p)
		if err != nil {
			skipped = append(skipped, Skipped{Path: p, Err: err})
			continue
		}
		modules = append(modules, m)
	}
	return modules, skipped
}

type parser struct {
	path  string
	lines []string
	pos   int
}

func parse(path, content string) (*Module, error) {
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, &IOError{Path: path, Err: err}
	}

	p := &parser{path: path, lines: lines}
	mod := &Module{Path: path, Name: path}

	for p.pos < len(p.lines) {
		lineNo := p.pos + 1
		line := stripComment(p.lines[p.pos])
		trimmed := strings.TrimSpace(line)
		p.pos++

		switch {
		case trimmed == "":
		case strings.HasPrefix(trimmed, "source_filename"):
			if name := quotedValue(trimmed); name != "" {
				mod.Name = name
			}
		case strings.HasPrefix(trimmed, "target "),
			strings.HasPrefix(trimmed, "declare "),
			strings.HasPrefix(trimmed, "declare("),
			strings.HasPrefix(trimmed, "attributes "),
			strings.HasPrefix(trimmed, "uselistorder"),
			strings.HasPrefix(trimmed, "@"),
			strings.HasPrefix(trimmed, "!"),
			strings.HasPrefix(trimmed, "$"),
			strings.HasPrefix(trimmed, "%"):
			// Globals, type definitions, metadata, attribute groups and
			// declarations carry nothing the analysis consumes.
		case strings.HasPrefix(trimmed, "define"):
			fn, err := p.parseFunction(trimmed, lineNo)
			if err != nil {
				return nil, err
			}
			mod.Functions = append(mod.Functions, fn)
		case strings.HasPrefix(trimmed, "module asm"):
			return nil, &UnsupportedError{Path: path, Line: lineNo, Detail: "module-level inline assembly"}
		default:
			return nil, &ParseError{Path: path, Line: lineNo, Reason: "unrecognized top-level construct: " + firstToken(trimmed)}
		}
	}

	return mod, nil
}

// parseFunction consumes a function body. header is the define line,
// already comment-stripped and trimmed.
func (p *parser) parseFunction(header string, headerLine int) (*Function, error) {
	fn, err := p.parseDefine(header, headerLine)
	if err != nil {
		return nil, err
	}

	var cur *Block
	openBlock := func(label string) *Block {
		b := &Block{Label: label, Index: len(fn.Blocks)}
		fn.Blocks = append(fn.Blocks, b)
		fn.labelIndex[label] = b.Index
		return b
	}

	for p.pos < len(p.lines) {
		lineNo := p.pos + 1
		line := strings.TrimSpace(stripComment(p.lines[p.pos]))
		p.pos++

		if line == "" {
			continue
		}
		if line == "}" {
			if cur != nil && !cur.terminated() {
				return nil, &ParseError{Path: p.path, Line: lineNo, Reason: "block " + cur.Label + " has no terminator"}
			}
			if len(fn.Blocks) == 0 {
				return nil, &ParseError{Path: p.path, Line: headerLine, Reason: "function " + fn.Name + " has no basic blocks"}
			}
			return fn, nil
		}

		if label, ok := blockLabel(line); ok {
			if cur != nil && !cur.terminated() {
				return nil, &ParseError{Path: p.path, Line: lineNo, Reason: "block " + cur.Label + " falls through into " + label}
			}
			cur = openBlock(label)
			continue
		}

		if cur == nil {
			cur = openBlock("entry")
		} else if cur.terminated() {
			return nil, &ParseError{Path: p.path, Line: lineNo, Reason: "instruction after terminator in block " + cur.Label}
		}

		op := opcodeOf(line)
		switch {
		case op == "ret":
			cur.Term = Terminator{Kind: TermRet}
			cur.markTerminated()
		case op == "unreachable":
			cur.Term = Terminator{Kind: TermUnreachable}
			cur.markTerminated()
		case op == "br":
			term, err := p.parseBr(line, lineNo)
			if err != nil {
				return nil, err
			}
			cur.Term = term
			cur.markTerminated()
		case op == "switch":
			full := line
			for !strings.Contains(full, "]") && p.pos < len(p.lines) {
				full += " " + strings.TrimSpace(stripComment(p.lines[p.pos]))
				p.pos++
			}
			term, err := p.parseSwitch(full, lineNo)
			if err != nil {
				return nil, err
			}
			cur.Term = term
			cur.markTerminated()
		case unsupportedTerminators[op]:
			return nil, &UnsupportedError{Path: p.path, Line: lineNo, Detail: op + " terminator"}
		default:
			inst, keep, err := p.parseInstruction(line, lineNo)
			if err != nil {
				return nil, err
			}
			if keep {
				cur.Instructions = append(cur.Instructions, inst)
			}
		}
	}

	return nil, &ParseError{Path: p.path, Line: headerLine, Reason: "unterminated function body for " + fn.Name}
}

// parseDefine extracts the symbol, return type and parameter types
// from a define line.
func (p *parser) parseDefine(line string, lineNo int) (*Function, error) {
	at := strings.Index(line, "@")
	if at < 0 {
		return nil, &ParseError{Path: p.path, Line: lineNo, Reason: "define without function symbol"}
	}
	open := strings.Index(line[at:], "(")
	if open < 0 {
		return nil, &ParseError{Path: p.path, Line: lineNo, Reason: "define without parameter list"}
	}
	name := strings.Trim(line[at+1:at+open], `"`)

	retType := "void"
	for _, tok := range strings.Fields(line[len("define"):at]) {
		if defineAttrWords[tok] || strings.HasPrefix(tok, "#") || strings.HasPrefix(tok, "!") {
			continue
		}
		retType = tok
	}

	closeIdx := matchParen(line, at+open)
	if closeIdx < 0 {
		return nil, &ParseError{Path: p.path, Line: lineNo, Reason: "unbalanced parameter list"}
	}
	var paramTypes []string
	for _, param := range splitTopLevel(line[at+open+1 : closeIdx]) {
		fields := strings.Fields(param)
		if len(fields) == 0 {
			continue
		}
		paramTypes = append(paramTypes, fields[0])
	}

	if !strings.HasSuffix(strings.TrimSpace(line), "{") {
		return nil, &ParseError{Path: p.path, Line: lineNo, Reason: "define not followed by function body"}
	}

	return &Function{
		Name:       name,
		ReturnType: retType,
		ParamTypes: paramTypes,
		labelIndex: make(map[string]int),
	}, nil
}

func (p *parser) parseBr(line string, lineNo int) (Terminator, error) {
	labels := labelTargets(line)
	switch len(labels) {
	case 1:
		return Terminator{Kind: TermBr, Targets: labels}, nil
	case 2:
		cond := ""
		fields := strings.Fields(line)
		for i, f := range fields {
			if f == "i1" && i+1 < len(fields) {
				cond = strings.TrimSuffix(strings.TrimPrefix(fields[i+1], "%"), ",")
				break
			}
		}
		return Terminator{Kind: TermCondBr, Cond: cond, Targets: labels}, nil
	default:
		return Terminator{}, &ParseError{Path: p.path, Line: lineNo, Reason: "br with " + strconv.Itoa(len(labels)) + " label operands"}
	}
}

func (p *parser) parseSwitch(line string, lineNo int) (Terminator, error) {
	labels := labelTargets(line)
	if len(labels) == 0 {
		return Terminator{}, &ParseError{Path: p.path, Line: lineNo, Reason: "switch without default label"}
	}
	term := Terminator{Kind: TermSwitch, Targets: labels}
	fields := strings.Fields(line)
	for i, f := range fields {
		if f == "switch" && i+2 < len(fields) {
			term.Cond = strings.TrimSuffix(strings.TrimPrefix(fields[i+2], "%"), ",")
		}
	}
	// Case constants appear inside the bracketed arm list.
	if open := strings.Index(line, "["); open >= 0 {
		for _, tok := range strings.Fields(line[open:]) {
			tok = strings.TrimSuffix(tok, ",")
			if v, err := strconv.ParseInt(tok, 10, 64); err == nil {
				term.CaseValues = append(term.CaseValues, v)
			}
		}
	}
	return term, nil
}

// parseInstruction parses an interior instruction. keep is false for
// tolerated-and-discarded constructs (debug and lifetime intrinsics).
func (p *parser) parseInstruction(line string, lineNo int) (inst Instruction, keep bool, err error) {
	rest := line
	if eq := strings.Index(line, "="); eq > 0 && strings.HasPrefix(strings.TrimSpace(line), "%") {
		inst.Name = strings.TrimPrefix(strings.TrimSpace(line[:eq]), "%")
		rest = strings.TrimSpace(line[eq+1:])
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return inst, false, &ParseError{Path: p.path, Line: lineNo, Reason: "empty instruction"}
	}

	op := fields[0]
	for op == "tail" || op == "musttail" || op == "notail" {
		fields = fields[1:]
		if len(fields) == 0 {
			return inst, false, &ParseError{Path: p.path, Line: lineNo, Reason: "dangling tail marker"}
		}
		op = fields[0]
	}
	if !knownOpcodes[op] {
		if unsupportedTerminators[op] {
			return inst, false, &UnsupportedError{Path: p.path, Line: lineNo, Detail: op}
		}
		return inst, false, &UnsupportedError{Path: p.path, Line: lineNo, Detail: "unknown opcode " + op}
	}
	inst.Opcode = op

	if op == "call" {
		callee := calleeOf(rest)
		if isDiscardedIntrinsic(callee) {
			return inst, false, nil
		}
		if callee != "" {
			inst.Operands = append(inst.Operands, "@"+callee)
		}
		return inst, true, nil
	}

	if op == "icmp" || op == "fcmp" {
		if len(fields) > 1 {
			inst.Pred = fields[1]
		}
	}

	if op == "phi" {
		inst.Incoming = phiIncomings(rest)
		for _, inc := range inst.Incoming {
			inst.Operands = append(inst.Operands, inc.Value)
			if v, perr := strconv.ParseInt(inc.Value, 10, 64); perr == nil {
				inst.Consts = append(inst.Consts, v)
			}
		}
		return inst, true, nil
	}

	// Generic operand scan: registers, symbols and integer constants.
	// Type tokens and attribute words fall out naturally.
	operandFields := fields[1:]
	for _, tok := range operandFields {
		tok = strings.Trim(tok, ",()")
		switch {
		case strings.HasPrefix(tok, "%"):
			inst.Operands = append(inst.Operands, tok)
		case strings.HasPrefix(tok, "@"):
			inst.Operands = append(inst.Operands, tok)
		default:
			if v, perr := strconv.ParseInt(tok, 10, 64); perr == nil {
				inst.Operands = append(inst.Operands, tok)
				inst.Consts = append(inst.Consts, v)
			}
		}
	}
	return inst, true, nil
}

func (b *Block) terminated() bool { return b.done }

func (b *Block) markTerminated() { b.done = true }

// stripComment removes a trailing ';' comment, respecting string
// literals.
func stripComment(line string) string {
	inString := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inString = !inString
		case ';':
			if !inString {
				return line[:i]
			}
		}
	}
	return line
}

// blockLabel recognizes "name:" lines opening a basic block.
func blockLabel(line string) (string, bool) {
	if !strings.HasSuffix(line, ":") {
		return "", false
	}
	label := strings.TrimSuffix(line, ":")
	label = strings.Trim(label, `"`)
	if label == "" || strings.ContainsAny(label, " \t") {
		return "", false
	}
	return label, true
}

// opcodeOf returns the opcode of an instruction line, looking past a
// result assignment.
func opcodeOf(line string) string {
	if eq := strings.Index(line, "="); eq > 0 && strings.HasPrefix(line, "%") {
		line = strings.TrimSpace(line[eq+1:])
	}
	return firstToken(line)
}

func firstToken(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// labelTargets collects "label %name" operand pairs from a line.
func labelTargets(line string) []string {
	var targets []string
	fields := strings.Fields(line)
	for i, f := range fields {
		if f == "label" && i+1 < len(fields) {
			t := strings.TrimSuffix(fields[i+1], ",")
			t = strings.Trim(strings.TrimPrefix(t, "%"), `"`)
			targets = append(targets, t)
		}
	}
	return targets
}

// calleeOf extracts the '@' symbol a call targets, or "" for indirect
// calls through a register.
func calleeOf(rest string) string {
	at := strings.Index(rest, "@")
	if at < 0 {
		return ""
	}
	end := at + 1
	for end < len(rest) && rest[end] != '(' && rest[end] != ' ' {
		end++
	}
	return strings.Trim(rest[at+1:end], `"`)
}

// isDiscardedIntrinsic reports whether a callee is metadata-like and
// may be dropped without affecting timing.
func isDiscardedIntrinsic(callee string) bool {
	for _, prefix := range []string{"llvm.dbg.", "llvm.lifetime.", "llvm.assume", "llvm.experimental.noalias", "llvm.annotation", "llvm.var.annotation"} {
		if strings.HasPrefix(callee, prefix) {
			return true
		}
	}
	return false
}

// phiIncomings parses the "[ value, %label ]" groups of a phi.
func phiIncomings(rest string) []Incoming {
	var incs []Incoming
	for {
		open := strings.Index(rest, "[")
		if open < 0 {
			break
		}
		closeIdx := strings.Index(rest[open:], "]")
		if closeIdx < 0 {
			break
		}
		group := rest[open+1 : open+closeIdx]
		parts := strings.SplitN(group, ",", 2)
		if len(parts) == 2 {
			incs = append(incs, Incoming{
				Value: strings.TrimSpace(parts[0]),
				Label: strings.Trim(strings.TrimPrefix(strings.TrimSpace(parts[1]), "%"), `"`),
			})
		}
		rest = rest[open+closeIdx+1:]
	}
	return incs
}

// quotedValue returns the first double-quoted string on a line.
func quotedValue(line string) string {
	start := strings.Index(line, `"`)
	if start < 0 {
		return ""
	}
	end := strings.Index(line[start+1:], `"`)
	if end < 0 {
		return ""
	}
	return line[start+1 : start+1+end]
}

// matchParen returns the index of the ')' matching the '(' at start,
// or -1.
func matchParen(s string, start int) int {
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTopLevel splits on commas not nested inside brackets.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	last := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{', '<':
			depth++
		case ')', ']', '}', '>':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[last:i]))
				last = i + 1
			}
		}
	}
	if tail := strings.TrimSpace(s[last:]); tail != "" {
		parts = append(parts, tail)
	}
	return parts
}
