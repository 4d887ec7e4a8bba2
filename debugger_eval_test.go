package zxcore

import "testing"

func TestEvaluateExpressionArithmeticAndRegisters(t *testing.T) {
	m := newTestMachine()
	m.CPU.SetHL(0x4000)
	m.CPU.A = 3

	v, err := EvaluateExpression(m, "HL + 1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 0x4001 {
		t.Fatalf("HL+1 = %04X, want 4001", v)
	}

	v, err = EvaluateExpression(m, "A * 2 + 1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 7 {
		t.Fatalf("A*2+1 = %d, want 7", v)
	}
}

func TestEvaluateConditionComparisonAndLogic(t *testing.T) {
	m := newTestMachine()
	m.CPU.PC = 0x8123

	ok, err := EvaluateCondition(m, "PC == $8123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected PC == $8123 to be true")
	}

	ok, err = EvaluateCondition(m, "PC == $8123 && A == $FF")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected conjunction to be true (A resets to $FF)")
	}

	ok, err = EvaluateCondition(m, "A != 0 || PC == $8123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected disjunction to be true")
	}
}

func TestEvaluateConditionPeekAndFlags(t *testing.T) {
	m := newTestMachine()
	m.DebugWrite(0x9000, 0x42)
	m.CPU.SetFlag(FlagZ, true)

	ok, err := EvaluateCondition(m, "PEEK($9000) == 66")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected PEEK($9000) == 66")
	}

	ok, err = EvaluateCondition(m, "FLAGS.Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected FLAGS.Z truthy")
	}
}

func TestEvaluateConditionUnknownIdentifierErrors(t *testing.T) {
	m := newTestMachine()
	_, err := EvaluateCondition(m, "NOTAREGISTER == 1")
	if err == nil {
		t.Fatalf("expected an error for an unknown identifier")
	}
}

func TestEvaluateConditionStringComparison(t *testing.T) {
	m := newTestMachine()
	ok, err := EvaluateCondition(m, `"abc" == "abc"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected equal strings to compare equal")
	}
}
