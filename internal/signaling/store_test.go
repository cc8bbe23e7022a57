package signaling

import "testing"

func TestMemoryStoreFirstWriteWins(t *testing.T) {
	s := NewMemoryStore()

	if err := s.Save(RoomConfig{RoomID: "R", MaxConcurrent: 5}); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(RoomConfig{RoomID: "R", MaxConcurrent: 9}); err != nil {
		t.Fatal(err)
	}

	cfg, ok, err := s.Load("R")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if cfg.MaxConcurrent != 5 {
		t.Fatalf("config overwritten: %+v", cfg)
	}
}

func TestMemoryStoreMissingRoom(t *testing.T) {
	s := NewMemoryStore()
	_, ok, err := s.Load("missing")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("missing room reported as present")
	}
}

func TestClampMaxConcurrent(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{0, DefaultMaxConcurrent},
		{-3, MinMaxConcurrent},
		{1, 1},
		{3, 3},
		{10, 10},
		{11, MaxMaxConcurrent},
		{99, MaxMaxConcurrent},
	}
	for _, c := range cases {
		if got := ClampMaxConcurrent(c.in); got != c.want {
			t.Errorf("ClampMaxConcurrent(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}
