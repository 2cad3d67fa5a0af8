package boltstore

import (
	"bytes"
	"encoding/gob"

	"github.com/textspot/textspot/pkg/world"
)

func init() {
	gob.Register(world.UserRecord{})
	gob.Register(world.Item{})
	gob.Register(world.Bot{})
	gob.Register(world.Response{})
}

// encodeUser serializes a UserRecord to bytes using gob.
func encodeUser(rec *world.UserRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeUser deserializes bytes back into a UserRecord.
func decodeUser(data []byte) (*world.UserRecord, error) {
	var rec world.UserRecord
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// roomRecord is the persisted shape of a room. Occupants are transient and
// never stored.
type roomRecord struct {
	ID          string
	Name        string
	Description string
	Exits       map[string]string
	Items       []string
}

func encodeRoom(r *world.Room) ([]byte, error) {
	rec := roomRecord{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Exits:       r.Exits,
		Items:       r.Items,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRoom(data []byte) (*world.Room, error) {
	var rec roomRecord
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&rec); err != nil {
		return nil, err
	}
	return &world.Room{
		ID:          rec.ID,
		Name:        rec.Name,
		Description: rec.Description,
		Exits:       rec.Exits,
		Items:       rec.Items,
	}, nil
}

func encodeItem(it *world.Item) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(it); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeItem(data []byte) (*world.Item, error) {
	var it world.Item
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&it); err != nil {
		return nil, err
	}
	return &it, nil
}

func encodeBot(b *world.Bot) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(b); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeBot(data []byte) (*world.Bot, error) {
	var b world.Bot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&b); err != nil {
		return nil, err
	}
	return &b, nil
}
