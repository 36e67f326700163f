package snapshot

import (
	"errors"
	"reflect"
	"testing"
)

func TestMarshalRoundtrip(t *testing.T) {
	s := New("page-1", "http://localhost:8080/")
	s.Nodes = append(s.Nodes,
		Node{
			Key:   "hs-abc",
			Tag:   "input",
			ID:    "name",
			Rect:  "10:20:200:24",
			Value: Ptr("abc"),
			Caret: &Caret{Start: 2, End: 2},
		},
		Node{
			Key:       "hs-def",
			Tag:       "div",
			Rect:      RectUnavailable,
			InnerHTML: Ptr("<b>hi</b> there"),
			Caret:     &Caret{Start: 1, End: 3, StartPath: []int{0, 0}, EndPath: []int{1}},
			ScrollTop: 120,
		},
		Node{Key: "hs-ghi", Tag: "input", Rect: "0:0:0:0", Checked: Ptr(false)},
	)

	data, err := Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, s) {
		t.Errorf("roundtrip mismatch:\n got %+v\nwant %+v", got, s)
	}
}

func TestMarshalKeepsFalseAndZero(t *testing.T) {
	s := New("p", "")
	s.Nodes = append(s.Nodes, Node{Key: "k", Tag: "select", Rect: "1:1:1:1",
		Checked: Ptr(false), SelectedIndex: Ptr(0), Value: Ptr("")})

	data, err := Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}
	n := got.Nodes[0]
	if n.Checked == nil || *n.Checked {
		t.Errorf("Checked: got %v, want pointer to false", n.Checked)
	}
	if n.SelectedIndex == nil || *n.SelectedIndex != 0 {
		t.Errorf("SelectedIndex: got %v, want pointer to 0", n.SelectedIndex)
	}
	if n.Value == nil || *n.Value != "" {
		t.Errorf("Value: got %v, want pointer to empty", n.Value)
	}
	if n.InnerHTML != nil || n.Caret != nil || n.DataState != nil {
		t.Errorf("absent fields must stay nil: %+v", n)
	}
}

func TestUnmarshalRejectsUnknownVersion(t *testing.T) {
	_, err := Unmarshal([]byte(`{"version":99,"time":1,"nodes":[]}`))
	if !errors.Is(err, ErrVersion) {
		t.Fatalf("err: got %v, want ErrVersion", err)
	}
}

func TestUnmarshalGarbage(t *testing.T) {
	if _, err := Unmarshal([]byte("not json")); err == nil {
		t.Fatal("expected error")
	}
}

func TestUnmarshalNilNodes(t *testing.T) {
	got, err := Unmarshal([]byte(`{"version":1,"time":5}`))
	if err != nil {
		t.Fatal(err)
	}
	if got.Nodes == nil {
		t.Error("Nodes: got nil, want empty slice")
	}
}

func TestNewStampsIdentity(t *testing.T) {
	a, b := New("s", ""), New("s", "")
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("ids: %q %q", a.ID, b.ID)
	}
	if a.Version != Version || a.Time <= 0 {
		t.Errorf("version/time: %d %d", a.Version, a.Time)
	}
}

func TestMarshalKeepsEmptyCaretPath(t *testing.T) {
	s := New("p", "")
	s.Nodes = append(s.Nodes, Node{Key: "k", Tag: "div", Rect: RectUnavailable,
		Caret: &Caret{Start: 0, End: 1, StartPath: []int{}, EndPath: []int{}}})
	data, err := Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}
	c := got.Nodes[0].Caret
	if c.StartPath == nil || c.EndPath == nil {
		t.Errorf("empty paths decoded as absent: %+v", c)
	}
}
