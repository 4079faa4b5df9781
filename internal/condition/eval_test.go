package condition

import "testing"

type fakeState struct {
	files       map[string]bool
	dirMatches  map[string]int
	active      map[string]bool
	activeCount map[string]int
	crc         map[string]uint32
	versions    map[string]string
}

func newFakeState() *fakeState {
	return &fakeState{
		files:       map[string]bool{},
		dirMatches:  map[string]int{},
		active:      map[string]bool{},
		activeCount: map[string]int{},
		crc:         map[string]uint32{},
		versions:    map[string]string{},
	}
}

func (f *fakeState) FileExists(relPath string) (bool, error) { return f.files[relPath], nil }
func (f *fakeState) CountMatches(dirPattern, filePattern string) (int, error) {
	return f.dirMatches[dirPattern+"/"+filePattern], nil
}
func (f *fakeState) IsPluginActive(name string) (bool, error) { return f.active[name], nil }
func (f *fakeState) CountActiveMatches(pattern string) (int, error) {
	return f.activeCount[pattern], nil
}
func (f *fakeState) CRC32(name string) (uint32, error) { return f.crc[name], nil }
func (f *fakeState) PluginVersion(name string) (string, bool, error) {
	v, ok := f.versions[name]
	return v, ok, nil
}

func TestEval_FileAndNot(t *testing.T) {
	state := newFakeState()
	state.files["Blank.esm"] = true

	p := NewParser()
	expr, err := p.Parse(`file("Blank.esm") and not file("Missing.esp")`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ok, err := expr.Eval(state)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if !ok {
		t.Error("expected true")
	}
}

func TestEval_PathTraversalRejected(t *testing.T) {
	state := newFakeState()
	p := NewParser()
	expr, err := p.Parse(`file("../../etc")`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	_, err = expr.Eval(state)
	if err == nil {
		t.Fatal("expected InvalidArgument for path traversal")
	}
}

func TestEval_SingleParentBounceAllowed(t *testing.T) {
	state := newFakeState()
	state.files["Textures/../Meshes/x.nif"] = true

	p := NewParser()
	expr, err := p.Parse(`file("Textures/../Meshes/x.nif")`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ok, err := expr.Eval(state)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if !ok {
		t.Error("expected a single \"..\" bounce to be permitted")
	}
}

func TestEval_Checksum(t *testing.T) {
	state := newFakeState()
	state.crc["Blank.esp"] = 0xDEADBEEF

	p := NewParser()
	expr, err := p.Parse(`checksum("Blank.esp", DEADBEEF)`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ok, err := expr.Eval(state)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if !ok {
		t.Error("expected checksum match")
	}
}

func TestEval_ActiveAndManyActive(t *testing.T) {
	state := newFakeState()
	state.active["Blank.esp"] = true
	state.activeCount[`Blank.*\.esp`] = 2

	p := NewParser()

	activeExpr, err := p.Parse(`active("Blank.esp")`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ok, err := activeExpr.Eval(state)
	if err != nil || !ok {
		t.Errorf("expected active(Blank.esp) true, got %v err=%v", ok, err)
	}

	manyExpr, err := p.Parse(`many_active("Blank.*\.esp")`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ok, err = manyExpr.Eval(state)
	if err != nil || !ok {
		t.Errorf("expected many_active true, got %v err=%v", ok, err)
	}
}

func TestEval_VersionComparators(t *testing.T) {
	state := newFakeState()
	state.versions["Blank.esp"] = "1.2.3"

	p := NewParser()
	tests := []struct {
		expr string
		want bool
	}{
		{`version("Blank.esp", "1.2.3", ==)`, true},
		{`version("Blank.esp", "1.2.3", !=)`, false},
		{`version("Blank.esp", "1.0.0", >)`, true},
		{`version("Blank.esp", "2.0.0", <)`, true},
	}
	for _, tt := range tests {
		expr, err := p.Parse(tt.expr)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.expr, err)
		}
		ok, err := expr.Eval(state)
		if err != nil {
			t.Fatalf("Eval(%q): %v", tt.expr, err)
		}
		if ok != tt.want {
			t.Errorf("%q = %v, want %v", tt.expr, ok, tt.want)
		}
	}
}

func TestEval_VersionMissingPluginFallback(t *testing.T) {
	state := newFakeState() // no versions recorded, PluginVersion returns ok=false

	p := NewParser()
	tests := []struct {
		cmp  string
		want bool
	}{
		{"!=", true},
		{"<", true},
		{"<=", true},
		{"==", false},
		{">", false},
		{">=", false},
	}
	for _, tt := range tests {
		expr, err := p.Parse(`version("Missing.esp", "1.0.0", ` + tt.cmp + `)`)
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		ok, err := expr.Eval(state)
		if err != nil {
			t.Fatalf("Eval: %v", err)
		}
		if ok != tt.want {
			t.Errorf("comparator %q against a missing plugin = %v, want %v", tt.cmp, ok, tt.want)
		}
	}
}
