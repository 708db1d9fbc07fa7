package vm

const (
	CALL_STACK_LIMIT = 4096 // Maximum call depth
)

// CallStack holds the return addresses pushed by call.
type CallStack struct {
	Data []uint32
}

func (s *CallStack) Push(value uint32) {
	s.Data = append(s.Data, value)
}

func (s *CallStack) Pop() (value uint32, ok bool) {
	value, ok = s.Peek()
	if ok {
		s.Data = s.Data[:len(s.Data)-1]
	}
	return
}

func (s *CallStack) Empty() bool {
	return len(s.Data) == 0
}

func (s *CallStack) Full() bool {
	return len(s.Data) >= CALL_STACK_LIMIT
}

func (s *CallStack) Depth() int {
	return len(s.Data)
}

func (s *CallStack) Peek() (value uint32, ok bool) {
	if s.Empty() {
		return
	}

	return s.Data[len(s.Data)-1], true
}

func (s *CallStack) Reset() {
	if len(s.Data) > 0 {
		s.Data = s.Data[:0]
	}
}
