package ir

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseSimpleFunction(t *testing.T) {
	src := `; ModuleID = 'demo.c'
source_filename = "demo.c"
target datalayout = "e-m:e-p:32:32-i64:64-v128:64:128-a:0:32-n32-S64"

define i32 @add3(i32 %a, i32 %b, i32 %c) {
entry:
  %t0 = add nsw i32 %a, %b
  %t1 = add nsw i32 %t0, %c
  ret i32 %t1
}
`
	mod, err := parse("demo.ll", src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if mod.Name != "demo.c" {
		t.Errorf("module name = %q, want demo.c", mod.Name)
	}
	if len(mod.Functions) != 1 {
		t.Fatalf("expected 1 function, got %d", len(mod.Functions))
	}

	fn := mod.Functions[0]
	if fn.Name != "add3" {
		t.Errorf("function name = %q, want add3", fn.Name)
	}
	if fn.ReturnType != "i32" {
		t.Errorf("return type = %q, want i32", fn.ReturnType)
	}
	if len(fn.ParamTypes) != 3 {
		t.Errorf("expected 3 params, got %d", len(fn.ParamTypes))
	}
	if len(fn.Blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(fn.Blocks))
	}

	b := fn.Entry()
	if b.Label != "entry" {
		t.Errorf("entry label = %q, want entry", b.Label)
	}
	if len(b.Instructions) != 2 {
		t.Errorf("expected 2 instructions, got %d", len(b.Instructions))
	}
	if b.Term.Kind != TermRet {
		t.Errorf("terminator = %v, want ret", b.Term.Kind)
	}
}

func TestParseBranchesAndPhi(t *testing.T) {
	src := `define i32 @count() {
entry:
  br label %header
header:
  %i = phi i32 [ 0, %entry ], [ %inc, %body ]
  %cmp = icmp slt i32 %i, 10
  br i1 %cmp, label %body, label %done
body:
  %inc = add nuw nsw i32 %i, 1
  br label %header
done:
  ret i32 %i
}
`
	mod, err := parse("count.ll", src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	fn := mod.Functions[0]
	if len(fn.Blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(fn.Blocks))
	}

	header := fn.Blocks[1]
	if header.Term.Kind != TermCondBr {
		t.Fatalf("header terminator = %v, want condbr", header.Term.Kind)
	}
	if header.Term.Cond != "cmp" {
		t.Errorf("branch condition = %q, want cmp", header.Term.Cond)
	}
	if len(header.Term.Targets) != 2 || header.Term.Targets[0] != "body" || header.Term.Targets[1] != "done" {
		t.Errorf("branch targets = %v, want [body done]", header.Term.Targets)
	}

	phi := header.Instructions[0]
	if phi.Opcode != "phi" || phi.Name != "i" {
		t.Fatalf("expected %%i = phi, got %s = %s", phi.Name, phi.Opcode)
	}
	if len(phi.Incoming) != 2 {
		t.Fatalf("expected 2 incomings, got %d", len(phi.Incoming))
	}
	if phi.Incoming[0].Value != "0" || phi.Incoming[0].Label != "entry" {
		t.Errorf("first incoming = %+v, want {0 entry}", phi.Incoming[0])
	}
	if phi.Incoming[1].Value != "%inc" || phi.Incoming[1].Label != "body" {
		t.Errorf("second incoming = %+v, want {%%inc body}", phi.Incoming[1])
	}

	cmp := header.Instructions[1]
	if cmp.Pred != "slt" {
		t.Errorf("icmp predicate = %q, want slt", cmp.Pred)
	}
	if len(cmp.Consts) != 1 || cmp.Consts[0] != 10 {
		t.Errorf("icmp consts = %v, want [10]", cmp.Consts)
	}
}

func TestParseSwitch(t *testing.T) {
	src := `define void @dispatch(i32 %x) {
entry:
  switch i32 %x, label %other [
    i32 1, label %one
    i32 2, label %two
  ]
one:
  ret void
two:
  ret void
other:
  unreachable
}
`
	mod, err := parse("switch.ll", src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	entry := mod.Functions[0].Entry()
	if entry.Term.Kind != TermSwitch {
		t.Fatalf("terminator = %v, want switch", entry.Term.Kind)
	}
	if len(entry.Term.Targets) != 3 || entry.Term.Targets[0] != "other" {
		t.Errorf("switch targets = %v, want [other one two]", entry.Term.Targets)
	}
	if len(entry.Term.CaseValues) != 2 || entry.Term.CaseValues[0] != 1 || entry.Term.CaseValues[1] != 2 {
		t.Errorf("case values = %v, want [1 2]", entry.Term.CaseValues)
	}
}

func TestParseDiscardsDebugIntrinsics(t *testing.T) {
	src := `define void @noisy() !dbg !7 {
entry:
  call void @llvm.dbg.value(metadata i32 0, metadata !12, metadata !DIExpression()), !dbg !13
  call void @llvm.lifetime.start.p0(i64 4, ptr %p)
  call void @work()
  ret void
}

declare void @work()
declare void @llvm.dbg.value(metadata, metadata, metadata)
`
	mod, err := parse("noisy.ll", src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	entry := mod.Functions[0].Entry()
	if len(entry.Instructions) != 1 {
		t.Fatalf("expected only the real call to survive, got %d instructions", len(entry.Instructions))
	}
	if entry.Instructions[0].Opcode != "call" {
		t.Errorf("surviving opcode = %q, want call", entry.Instructions[0].Opcode)
	}
}

func TestParseRejectsUnknownOpcode(t *testing.T) {
	src := `define void @bad() {
entry:
  %v = frobnicate i32 1, 2
  ret void
}
`
	_, err := parse("bad.ll", src)
	var unsupported *UnsupportedError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedError, got %v", err)
	}
	if unsupported.Line != 3 {
		t.Errorf("error line = %d, want 3", unsupported.Line)
	}
}

func TestParseRejectsInvoke(t *testing.T) {
	src := `define void @thrower() personality ptr @__gxx_personality_v0 {
entry:
  invoke void @may_throw() to label %cont unwind label %lpad
cont:
  ret void
lpad:
  unreachable
}
`
	_, err := parse("invoke.ll", src)
	var unsupported *UnsupportedError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedError for invoke, got %v", err)
	}
}

func TestParseRejectsMissingTerminator(t *testing.T) {
	src := `define void @cut() {
entry:
  %v = add i32 1, 2
}
`
	_, err := parse("cut.ll", src)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestParseRejectsUnknownTopLevel(t *testing.T) {
	src := "gibberish here\n"
	_, err := parse("top.ll", src)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if parseErr.Line != 1 {
		t.Errorf("error line = %d, want 1", parseErr.Line)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.ll"))
	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected IOError, got %v", err)
	}
}

func TestLoadBatchSkipsBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.ll")
	bad := filepath.Join(dir, "bad.ll")

	goodSrc := `define void @ok() {
entry:
  ret void
}
`
	if err := os.WriteFile(good, []byte(goodSrc), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("not ir at all\n"), 0644); err != nil {
		t.Fatal(err)
	}

	modules, skipped := LoadBatch([]string{good, bad})
	if len(modules) != 1 {
		t.Fatalf("expected 1 module, got %d", len(modules))
	}
	if len(skipped) != 1 {
		t.Fatalf("expected 1 skipped file, got %d", len(skipped))
	}
	if skipped[0].Path != bad {
		t.Errorf("skipped path = %q, want %q", skipped[0].Path, bad)
	}
}

func TestBlockByLabel(t *testing.T) {
	src := `define void @two() {
entry:
  br label %next
next:
  ret void
}
`
	mod, err := parse("two.ll", src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	fn := mod.Functions[0]
	idx, ok := fn.BlockByLabel("next")
	if !ok || idx != 1 {
		t.Errorf("BlockByLabel(next) = (%d, %v), want (1, true)", idx, ok)
	}
	if _, ok := fn.BlockByLabel("nope"); ok {
		t.Error("BlockByLabel(nope) unexpectedly found a block")
	}
}
