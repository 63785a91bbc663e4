package events

import "sync"

type Handler func(Event)

type subscription struct {
	fn    Handler
	kinds map[Kind]struct{} // пусто: все события
}

func (s *subscription) wants(k Kind) bool {
	if len(s.kinds) == 0 {
		return true
	}
	_, ok := s.kinds[k]
	return ok
}

// Bus — реестр обработчиков. Обработчики вызываются синхронно, в порядке
// подписки, на горутине, которая шлёт событие.
type Bus struct {
	mu   sync.RWMutex
	subs []*subscription
}

// Subscribe подписывает fn на перечисленные события (без kinds — на все).
// Возвращает функцию отписки.
func (b *Bus) Subscribe(fn Handler, kinds ...Kind) (cancel func()) {
	s := &subscription{fn: fn}
	if len(kinds) > 0 {
		s.kinds = make(map[Kind]struct{}, len(kinds))
		for _, k := range kinds {
			s.kinds[k] = struct{}{}
		}
	}

	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, x := range b.subs {
			if x == s {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Listening — есть ли подписчик на k.
func (b *Bus) Listening(k Kind) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		if s.wants(k) {
			return true
		}
	}
	return false
}

func (b *Bus) Emit(e Event) {
	k := e.Kind()
	b.mu.RLock()
	targets := make([]Handler, 0, len(b.subs))
	for _, s := range b.subs {
		if s.wants(k) {
			targets = append(targets, s.fn)
		}
	}
	b.mu.RUnlock()

	for _, fn := range targets {
		fn(e)
	}
}

// Reset снимает всех подписчиков.
func (b *Bus) Reset() {
	b.mu.Lock()
	b.subs = nil
	b.mu.Unlock()
}

func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
