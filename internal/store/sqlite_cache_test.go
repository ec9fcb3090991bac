package store

import (
	"errors"
	"fmt"
	"testing"
)

func TestProfileRoundTrip(t *testing.T) {
	s, err := NewCacheStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	data := []byte(`{"plotText":"The storm breaks over the harbor."}`)
	if err := s.PutProfile("alice::conv-1", data, 1000); err != nil {
		t.Fatalf("PutProfile failed: %v", err)
	}

	got, err := s.GetProfile("alice::conv-1")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("Expected %s, got %s", data, got)
	}

	// Overwrite replaces the record in place
	data2 := []byte(`{"plotText":"A stranger arrives at dawn."}`)
	if err := s.PutProfile("alice::conv-1", data2, 2000); err != nil {
		t.Fatalf("PutProfile overwrite failed: %v", err)
	}
	got, err = s.GetProfile("alice::conv-1")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if string(got) != string(data2) {
		t.Errorf("Expected overwritten record, got %s", got)
	}

	count, err := s.CountProfiles()
	if err != nil {
		t.Fatalf("CountProfiles failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 record, got %d", count)
	}
}

func TestGetProfileMissing(t *testing.T) {
	s, err := NewCacheStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	got, err := s.GetProfile("nobody::conv-x")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for missing key, got %v", got)
	}
}

func TestQuotaExceeded(t *testing.T) {
	s, err := NewCacheStoreWithDSN(":memory:", 100, 0)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	small := make([]byte, 60)
	if err := s.PutProfile("a::1", small, 1); err != nil {
		t.Fatalf("First write should fit: %v", err)
	}

	// 60 + 60 > 100: rejected without writing
	err = s.PutProfile("b::2", small, 2)
	if err == nil {
		t.Fatal("Expected quota error")
	}
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("Expected ErrQuotaExceeded, got %v", err)
	}

	count, _ := s.CountProfiles()
	if count != 1 {
		t.Errorf("Rejected write must not persist, count = %d", count)
	}

	// Overwriting an existing key only counts the delta
	if err := s.PutProfile("a::1", make([]byte, 90), 3); err != nil {
		t.Errorf("Overwrite within quota failed: %v", err)
	}
}

func TestIndexCapPrunesOldest(t *testing.T) {
	s, err := NewCacheStoreWithDSN(":memory:", 0, 30)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	for i := 0; i < 35; i++ {
		key := fmt.Sprintf("p%d::c%d", i, i)
		if err := s.PutProfile(key, []byte("{}"), int64(i)); err != nil {
			t.Fatalf("PutProfile %d failed: %v", i, err)
		}
		if err := s.UpsertIndexEntry(&IndexEntry{
			Key:           key,
			ParticipantID: fmt.Sprintf("p%d", i),
			LastActive:    int64(1000 + i),
		}); err != nil {
			t.Fatalf("UpsertIndexEntry %d failed: %v", i, err)
		}
	}

	count, err := s.CountIndex()
	if err != nil {
		t.Fatalf("CountIndex failed: %v", err)
	}
	if count != 30 {
		t.Errorf("Expected index capped at 30, got %d", count)
	}

	// The 5 oldest conversations lost both rows
	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("p%d::c%d", i, i)
		e, err := s.GetIndexEntry(key)
		if err != nil {
			t.Fatalf("GetIndexEntry failed: %v", err)
		}
		if e != nil {
			t.Errorf("Expected %s pruned from index", key)
		}
		data, err := s.GetProfile(key)
		if err != nil {
			t.Fatalf("GetProfile failed: %v", err)
		}
		if data != nil {
			t.Errorf("Expected %s pruned from profiles", key)
		}
	}

	// The newest survived
	if e, _ := s.GetIndexEntry("p34::c34"); e == nil {
		t.Error("Expected newest entry to survive pruning")
	}
}

func TestListIndexOrder(t *testing.T) {
	s, err := NewCacheStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	for i := 0; i < 3; i++ {
		if err := s.UpsertIndexEntry(&IndexEntry{
			Key:           fmt.Sprintf("k%d", i),
			ParticipantID: fmt.Sprintf("p%d", i),
			LastActive:    int64(100 * (i + 1)),
		}); err != nil {
			t.Fatalf("UpsertIndexEntry failed: %v", err)
		}
	}

	entries, err := s.ListIndex()
	if err != nil {
		t.Fatalf("ListIndex failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	if entries[0].Key != "k2" || entries[2].Key != "k0" {
		t.Errorf("Expected most recent first, got %s..%s", entries[0].Key, entries[2].Key)
	}
}

func TestEvictOldest(t *testing.T) {
	s, err := NewCacheStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("p%d::c%d", i, i)
		if err := s.PutProfile(key, []byte("{}"), int64(i)); err != nil {
			t.Fatalf("PutProfile failed: %v", err)
		}
		if err := s.UpsertIndexEntry(&IndexEntry{
			Key:           key,
			ParticipantID: fmt.Sprintf("p%d", i),
			LastActive:    int64(1000 + i),
		}); err != nil {
			t.Fatalf("UpsertIndexEntry failed: %v", err)
		}
	}

	// ceil(10 * 0.2) = 2 oldest go
	evicted, err := s.EvictOldest(0.2)
	if err != nil {
		t.Fatalf("EvictOldest failed: %v", err)
	}
	if evicted != 2 {
		t.Errorf("Expected 2 evicted, got %d", evicted)
	}

	count, _ := s.CountIndex()
	if count != 8 {
		t.Errorf("Expected 8 remaining, got %d", count)
	}
	if data, _ := s.GetProfile("p0::c0"); data != nil {
		t.Error("Expected oldest record evicted")
	}
	if data, _ := s.GetProfile("p9::c9"); data == nil {
		t.Error("Expected newest record to survive")
	}
}

func TestEvictOldestMinimumOne(t *testing.T) {
	s, err := NewCacheStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	if err := s.UpsertIndexEntry(&IndexEntry{Key: "only", ParticipantID: "p", LastActive: 1}); err != nil {
		t.Fatalf("UpsertIndexEntry failed: %v", err)
	}

	evicted, err := s.EvictOldest(0.2)
	if err != nil {
		t.Fatalf("EvictOldest failed: %v", err)
	}
	if evicted != 1 {
		t.Errorf("Expected minimum of 1 evicted, got %d", evicted)
	}
}

func TestEvictOldestEmpty(t *testing.T) {
	s, err := NewCacheStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	evicted, err := s.EvictOldest(0.2)
	if err != nil {
		t.Fatalf("EvictOldest failed: %v", err)
	}
	if evicted != 0 {
		t.Errorf("Expected 0 evicted from empty store, got %d", evicted)
	}
}

func TestDeleteProfile(t *testing.T) {
	s, err := NewCacheStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	if err := s.PutProfile("a::1", []byte("{}"), 1); err != nil {
		t.Fatalf("PutProfile failed: %v", err)
	}
	if err := s.UpsertIndexEntry(&IndexEntry{Key: "a::1", ParticipantID: "a", LastActive: 1}); err != nil {
		t.Fatalf("UpsertIndexEntry failed: %v", err)
	}

	if err := s.DeleteProfile("a::1"); err != nil {
		t.Fatalf("DeleteProfile failed: %v", err)
	}

	if data, _ := s.GetProfile("a::1"); data != nil {
		t.Error("Expected record deleted")
	}
	if e, _ := s.GetIndexEntry("a::1"); e != nil {
		t.Error("Expected index entry deleted")
	}
}
