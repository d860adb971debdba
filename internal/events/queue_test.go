package events

import "testing"

func drain(q *Queue) []Event {
	var out []Event
	for {
		ev, ok := q.Pop()
		if !ok {
			return out
		}
		out = append(out, ev)
	}
}

func TestQueue_EmptyPop(t *testing.T) {
	q := NewQueue(4)
	if ev, ok := q.Pop(); ok || ev != nil {
		t.Fatalf("Pop() on empty queue = %v, %v", ev, ok)
	}
}

func TestQueue_RedrawCoalescesKeyboardDoesNot(t *testing.T) {
	q := NewQueue(DefaultCapacity)
	q.Push(Redraw{})
	q.Push(Keyboard{Key: 'a', Pressed: true, Repeat: 1})
	q.Push(Redraw{X: 1, Y: 2, Width: 3, Height: 4})
	q.Push(Keyboard{Key: 'b', Pressed: true, Repeat: 1})

	got := drain(q)
	want := []Event{
		Keyboard{Key: 'a', Pressed: true, Repeat: 1},
		Redraw{X: 1, Y: 2, Width: 3, Height: 4},
		Keyboard{Key: 'b', Pressed: true, Repeat: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("drained %d events, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d = %#v, want %#v", i, got[i], want[i])
		}
	}
}

func TestQueue_ResizeCoalescesIndependently(t *testing.T) {
	q := NewQueue(DefaultCapacity)
	q.Push(Resize{Width: 10, Height: 10})
	q.Push(Redraw{})
	q.Push(Resize{Width: 20, Height: 20})

	got := drain(q)
	if len(got) != 2 {
		t.Fatalf("drained %d events, want 2", len(got))
	}
	if got[0] != (Redraw{}) || got[1] != (Resize{Width: 20, Height: 20}) {
		t.Fatalf("events = %#v", got)
	}
}

func TestQueue_OverflowPrefersCoalescableVictim(t *testing.T) {
	q := NewQueue(3)
	q.Push(Keyboard{Key: '1', Repeat: 1})
	q.Push(Redraw{})
	q.Push(Keyboard{Key: '2', Repeat: 1})

	if !q.Push(Keyboard{Key: '3', Repeat: 1}) {
		t.Fatalf("Push() into full queue did not report overflow")
	}
	got := drain(q)
	for _, ev := range got {
		if ev.Type() == TypeRedraw {
			t.Fatalf("redraw was not evicted: %v", got)
		}
	}
	if len(got) != 3 || got[0].(Keyboard).Key != '1' {
		t.Fatalf("events = %#v", got)
	}
}

func TestQueue_OverflowDropsOldest(t *testing.T) {
	q := NewQueue(2)
	q.Push(Mouse{X: 1})
	q.Push(Mouse{X: 2})
	q.Push(Mouse{X: 3})

	got := drain(q)
	if len(got) != 2 || got[0].(Mouse).X != 2 || got[1].(Mouse).X != 3 {
		t.Fatalf("events = %#v", got)
	}
	if q.Overflows() != 1 {
		t.Fatalf("Overflows() = %d, want 1", q.Overflows())
	}
}

func TestQueue_ReusesEntries(t *testing.T) {
	q := NewQueue(8)
	for i := 0; i < 100; i++ {
		q.Push(Mouse{X: uint32(i)})
		if _, ok := q.Pop(); !ok {
			t.Fatalf("Pop() %d failed", i)
		}
	}
	if q.Len() != 0 {
		t.Fatalf("Len() = %d", q.Len())
	}
	q.Push(Mouse{})
	q.Clear()
	if _, ok := q.Peek(); ok {
		t.Fatalf("Peek() after Clear found an event")
	}
}

func TestRecord_BinaryLayout(t *testing.T) {
	r := Mouse{X: 5, Y: 7, Buttons: ButtonLeft | ButtonMiddle, Scroll: -1}.Record()
	data, err := r.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error: %v", err)
	}
	if len(data) != RecordSize {
		t.Fatalf("len = %d", len(data))
	}
	if data[0] != 0 || data[4] != 5 || data[8] != 7 || data[12] != 5 || data[16] != 0xFF {
		t.Fatalf("layout = % x", data)
	}

	var back Record
	if err := back.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary() error: %v", err)
	}
	ev, err := Decode(back)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if m := ev.(Mouse); m.Scroll != -1 || m.Buttons != ButtonLeft|ButtonMiddle {
		t.Fatalf("decoded %#v", m)
	}

	if err := back.UnmarshalBinary(data[:10]); err != ErrShortRecord {
		t.Fatalf("UnmarshalBinary(short) error = %v", err)
	}
	if _, err := Decode(NoneRecord); err == nil {
		t.Fatalf("Decode(NONE) expected error")
	}
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		in   string
		want Key
	}{
		{in: "w", want: 0x77},
		{in: "Enter", want: KeyEnter},
		{in: "esc", want: KeyEscape},
		{in: "left", want: KeyLeft},
		{in: "shift", want: KeyShift},
		{in: " ", want: KeySpace},
	}
	for _, tt := range tests {
		got, err := ParseKey(tt.in)
		if err != nil {
			t.Fatalf("ParseKey(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseKey(%q) = %#x, want %#x", tt.in, got, tt.want)
		}
	}
	if _, err := ParseKey("hyper"); err == nil {
		t.Fatalf("ParseKey(hyper) expected error")
	}
}
