package serial

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
)

type SerialSuite struct {
	suite.Suite
	alloc *Memory
	ctx   context.Context
}

func (s *SerialSuite) SetupTest() {
	s.alloc = NewMemory("YSVS")
	s.ctx = context.Background()
}

func TestSerialSuite(t *testing.T) {
	suite.Run(t, new(SerialSuite))
}

// TestSequence verifies serials within one year are sequential and
// zero-padded, and that a new year restarts the counter.
func (s *SerialSuite) TestSequence() {
	first, err := s.alloc.Next(s.ctx, 2026)
	s.Require().NoError(err)
	s.Equal("YSVS-2026-00001", first)

	second, err := s.alloc.Next(s.ctx, 2026)
	s.Require().NoError(err)
	s.Equal("YSVS-2026-00002", second)

	nextYear, err := s.alloc.Next(s.ctx, 2027)
	s.Require().NoError(err)
	s.Equal("YSVS-2027-00001", nextYear)
}

func (s *SerialSuite) TestBatch() {
	s.Run("batch is contiguous and continues the sequence", func() {
		_, err := s.alloc.Next(s.ctx, 2026)
		s.Require().NoError(err)

		batch, err := s.alloc.NextBatch(s.ctx, 2026, 3)
		s.Require().NoError(err)
		s.Equal([]string{"YSVS-2026-00002", "YSVS-2026-00003", "YSVS-2026-00004"}, batch)
	})

	s.Run("non-positive count is rejected", func() {
		_, err := s.alloc.NextBatch(s.ctx, 2026, 0)
		s.Require().Error(err)
	})
}

// TestConcurrentAllocations verifies pairwise distinctness under contention.
func (s *SerialSuite) TestConcurrentAllocations() {
	const goroutines = 50

	var wg sync.WaitGroup
	serials := make(chan string, goroutines)
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serial, err := s.alloc.Next(s.ctx, 2026)
			s.NoError(err)
			serials <- serial
		}()
	}
	wg.Wait()
	close(serials)

	seen := make(map[string]bool)
	for serial := range serials {
		s.False(seen[serial], "duplicate serial %s", serial)
		seen[serial] = true
	}
	s.Len(seen, goroutines)
}
