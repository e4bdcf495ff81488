package queryparams

import "testing"

func TestDefaults(t *testing.T) {
	p := Defaults()
	if p.FetchSize != 1000 || p.MaxRows != 0 || p.Offset != 0 || p.Position != 0 {
		t.Fatalf("unexpected defaults: %+v", p)
	}
}

func TestMergeFromJSONOnlyOverlaysPresentKeys(t *testing.T) {
	base := Defaults()
	merged, err := base.MergeFromJSON([]byte(`{"fetch_size": 50}`))
	if err != nil {
		t.Fatalf("MergeFromJSON: %v", err)
	}
	if merged.FetchSize != 50 {
		t.Fatalf("fetch_size = %d, want 50", merged.FetchSize)
	}
	if merged.MaxRows != base.MaxRows {
		t.Fatalf("max_rows should be untouched: %+v", merged)
	}
}

func TestMergeFromURIPrecedence(t *testing.T) {
	base := Defaults()
	dsLevel, _ := base.MergeFromJSON([]byte(`{"fetch_size": 50, "max_rows": 10}`))
	final, err := dsLevel.MergeFromURI("?fetch_size=5&debug=true")
	if err != nil {
		t.Fatalf("MergeFromURI: %v", err)
	}
	if final.FetchSize != 5 {
		t.Fatalf("URI should win: fetch_size = %d, want 5", final.FetchSize)
	}
	if final.MaxRows != 10 {
		t.Fatalf("datasource level should survive: max_rows = %d, want 10", final.MaxRows)
	}
	if !final.Debug {
		t.Fatal("debug should be true from URI")
	}
}

func TestToQueryStringDebugScenario(t *testing.T) {
	p := Defaults()
	want := "fetch_size=1000&max_rows=0&offset=0&position=0&null_as_default=false"
	if got := p.ToQueryString(); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
