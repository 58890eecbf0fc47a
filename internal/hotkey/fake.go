package hotkey

// FakeHook drives the listener from tests without touching global input.
type FakeHook struct {
	keydown     chan struct{}
	keyup       chan struct{}
	RegisterErr error
	Registered  bool
}

func NewFakeHook() *FakeHook {
	return &FakeHook{
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}
}

func (f *FakeHook) Register() error {
	if f.RegisterErr != nil {
		return f.RegisterErr
	}
	f.Registered = true
	return nil
}

func (f *FakeHook) Unregister() { f.Registered = false }

func (f *FakeHook) Keydown() <-chan struct{} { return f.keydown }
func (f *FakeHook) Keyup() <-chan struct{}   { return f.keyup }

// Press emits one raw keydown signal.
func (f *FakeHook) Press() { f.keydown <- struct{}{} }

// Release emits one raw keyup signal.
func (f *FakeHook) Release() { f.keyup <- struct{}{} }
