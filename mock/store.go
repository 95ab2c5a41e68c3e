package mock

import "github.com/Webictbyleo/capsule"

var _ capsule.AssetWriter = (*Store)(nil)

// Store is a mock implementation of capsule.AssetWriter.
type Store struct {
	WriteFn func(name string, data []byte) (string, error)
	RelFn   func(filename string) string
}

func (s *Store) Write(name string, data []byte) (string, error) {
	return s.WriteFn(name, data)
}

func (s *Store) Rel(filename string) string {
	return s.RelFn(filename)
}
