// Package studio is the content studio core: a schema-driven document store
// with image assets, reference integrity and revision-checked updates.
//
// A Service is assembled from a Repository, one or more BlobStores and an
// optional EventSink:
//
//	svc, err := studio.New(
//		studio.WithStudioConfig(studio.NewStudioConfig("72ntt3vc", "production")),
//		studio.WithRepository(memory.New()),
//		studio.WithBlobStore("memory", memorystorage.New()),
//	)
//
// Documents are validated against the schema registry held by the studio
// Config before they are persisted. References between documents are
// resolved on every write and a document cannot be deleted while another
// document still points at it.
package studio
