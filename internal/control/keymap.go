package control

// Keymap resolves the platform modifier used for copy/paste chords. macOS
// uses cmd where everything else uses ctrl; backends route selection
// copy/paste through this strategy instead of hardcoding either.
type Keymap interface {
	CopyCombo() []string
	PasteCombo() []string
}

type macKeymap struct{}

func (macKeymap) CopyCombo() []string  { return []string{"cmd", "c"} }
func (macKeymap) PasteCombo() []string { return []string{"cmd", "v"} }

type defaultKeymap struct{}

func (defaultKeymap) CopyCombo() []string  { return []string{"ctrl", "c"} }
func (defaultKeymap) PasteCombo() []string { return []string{"ctrl", "v"} }

// KeymapFor returns the copy/paste strategy for the given GOOS.
func KeymapFor(goos string) Keymap {
	if goos == "darwin" {
		return macKeymap{}
	}
	return defaultKeymap{}
}
