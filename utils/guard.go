package utils

// Guard is a structure for managing special cleanup for when a function that returns an allocated
// resource (e.g: an open file or reader session) fails. A Guard is used like:
//
//	guard := NewGuard(func() { f.Close() })
//	defer guard.OnFail()
//	if (error) { return error }
//	guard.Success()
//	return nil
type Guard struct {
	OnFail  func()
	success bool
}

// NewGuard returns a Guard running onFailCleanup unless Success is called first.
func NewGuard(onFailCleanup func()) *Guard {
	ret := &Guard{}
	ret.OnFail = func() {
		if !ret.success {
			onFailCleanup()
		}
	}
	return ret
}

// Success declares the function succeeded and the "failure" cleanup code does not need to be
// executed.
func (guard *Guard) Success() {
	guard.success = true
}
