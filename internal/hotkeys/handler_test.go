package hotkeys

import (
	"errors"
	"testing"

	"github.com/1broseidon/winsrv/internal/config"
)

type fakeTiler struct {
	tiles, undos int
	err          error
}

func (f *fakeTiler) Tile() (int, error) { f.tiles++; return 2, f.err }
func (f *fakeTiler) Undo() error { f.undos++; return f.err }

func TestBindings(t *testing.T) {
	tests := []struct {
		name      string
		shortcuts config.Shortcuts
		want      []string
	}{
		{"defaults", config.DefaultConfig().Shortcuts, []string{"tile", "undo"}},
		{"tile only", config.Shortcuts{Tile: "Mod1-t"}, []string{"tile"}},
		{"none", config.Shortcuts{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bs := Bindings(tt.shortcuts, &fakeTiler{})
			if len(bs) != len(tt.want) {
				t.Fatalf("got %d bindings, want %d", len(bs), len(tt.want))
			}
			for i, b := range bs {
				if b.Name != tt.want[i] {
					t.Errorf("binding %d = %q, want %q", i, b.Name, tt.want[i])
				}
				if b.Keys == "" {
					t.Errorf("binding %q has no keys", b.Name)
				}
			}
		})
	}
}

func TestBindingsRunActions(t *testing.T) {
	ft := &fakeTiler{}
	bs := Bindings(config.Shortcuts{Tile: "Mod4-t", Undo: "Mod4-u"}, ft)
	for _, b := range bs {
		if err := b.Run(); err != nil {
			t.Fatalf("%s: %v", b.Name, err)
		}
	}
	if ft.tiles != 1 || ft.undos != 1 {
		t.Fatalf("tiles=%d undos=%d, want 1 each", ft.tiles, ft.undos)
	}

	ft.err = errors.New("nothing to undo")
	if err := bs[1].Run(); !errors.Is(err, ft.err) {
		t.Fatalf("undo err = %v", err)
	}
}
