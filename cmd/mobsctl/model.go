package main

import "github.com/AlMarentu/mobs-go/core"

// Trailer is a vector element type declared once and reused by Vehicle's
// Trailers vector.
type Trailer struct {
	core.Record
	Kind *core.LeafField[string]
}

func newTrailer(parent core.ParentLink, name string) core.Recordish {
	t := &Trailer{}
	t.Record = *core.NewElemRecord(parent, "Trailer")
	t.Kind = core.NewLeaf[string](&t.Record, "type", core.Flag(core.InitialNull))
	return t
}

func init() {
	core.Register("Trailer", func() core.Recordish {
		r := core.NewRecord("Trailer")
		t := &Trailer{Record: *r}
		t.Kind = core.NewLeaf[string](&t.Record, "type", core.Flag(core.InitialNull))
		return t
	})
}

// Vehicle is the demo schema: Id/Type/Axles leaves plus a Trailers
// vector, enough to exercise keys, null handling, JSON/XML round trips,
// and vector auto-grow in one record.
type Vehicle struct {
	core.Record
	Id       *core.LeafField[int]
	Type     *core.LeafField[string]
	Axles    *core.LeafField[int]
	Trailers *core.RecordVector
}

// NewVehicle declares a fresh Vehicle with its schema wired up: Id is
// Key1, Axles accepts an explicit null, Trailers auto-grows on write.
func NewVehicle() *Vehicle {
	r := core.NewRecord("Vehicle", core.Flag(core.OTypeAsXRoot))
	v := &Vehicle{Record: *r}
	v.Id = core.NewLeaf[int](&v.Record, "id", core.Flag(core.Key1))
	v.Type = core.NewLeaf[string](&v.Record, "type")
	v.Axles = core.NewLeaf[int](&v.Record, "axles", core.Flag(core.InitialNull))
	v.Trailers = core.NewRecordVector(&v.Record, "haenger", "Trailer", newTrailer)
	return v
}

func init() {
	core.Register("Vehicle", func() core.Recordish { return &NewVehicle().Record })
}
