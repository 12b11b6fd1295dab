package mem

import (
	"errors"
	"fmt"
)

// storagePageWords is the allocation unit of a Storage, in words.
const storagePageWords = 1024

// A Storage keeps the words of one physical memory. Pages are allocated
// lazily; untouched regions cost nothing.
type Storage struct {
	capacity uint64
	pages    map[uint64][]uint64
}

// NewStorage creates a storage with the given capacity in words.
func NewStorage(capacityInWords uint64) *Storage {
	return &Storage{
		capacity: capacityInWords,
		pages:    make(map[uint64][]uint64),
	}
}

// Capacity returns the capacity of the storage in words.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

// Read returns n consecutive words starting at the given word address.
func (s *Storage) Read(address, n uint64) ([]uint64, error) {
	if address+n > s.capacity {
		return nil, fmt.Errorf(
			"reading [%d, %d) beyond capacity %d", address, address+n, s.capacity)
	}

	out := make([]uint64, n)
	for i := uint64(0); i < n; i++ {
		page, offset := s.locate(address + i)
		out[i] = page[offset]
	}

	return out, nil
}

// Write stores consecutive words starting at the given word address.
func (s *Storage) Write(address uint64, data []uint64) error {
	return s.WriteMasked(address, data, nil)
}

// WriteMasked stores consecutive words, applying one byte mask per word. A
// nil mask writes every byte.
func (s *Storage) WriteMasked(
	address uint64,
	data []uint64,
	masks []uint8,
) error {
	if address+uint64(len(data)) > s.capacity {
		return errors.New("writing beyond the storage capacity")
	}

	if masks != nil && len(masks) != len(data) {
		return errors.New("mask length does not match data length")
	}

	for i, word := range data {
		page, offset := s.locate(address + uint64(i))

		if masks == nil || masks[i] == FullMask {
			page[offset] = word
			continue
		}

		page[offset] = mergeWord(page[offset], word, masks[i])
	}

	return nil
}

func (s *Storage) locate(address uint64) ([]uint64, uint64) {
	base := address / storagePageWords * storagePageWords
	page, ok := s.pages[base]
	if !ok {
		page = make([]uint64, storagePageWords)
		s.pages[base] = page
	}

	return page, address - base
}

// mergeWord replaces the bytes of old selected by the mask with the
// corresponding bytes of new.
func mergeWord(old, new uint64, mask uint8) uint64 {
	merged := old
	for byteIdx := 0; byteIdx < 8; byteIdx++ {
		if mask&(1<<byteIdx) == 0 {
			continue
		}

		shift := uint(byteIdx) * 8
		merged &^= uint64(0xff) << shift
		merged |= new & (uint64(0xff) << shift)
	}

	return merged
}
