// Package client implements the todo.RecordService gRPC service and its Go client.
//
// # Overview
//
// RecordService exposes the records store over gRPC. Despite the name this is
// mostly a server package: "client" refers to the callers these handlers
// serve. RecordClient is the matching typed client used by todo-admin.
//
// Messages are google.protobuf.Struct values described by a hand-written
// grpc.ServiceDesc, so no protoc step is needed. uint64 fields are encoded as
// decimal strings.
//
// # Service Methods
//
//   - AddRecord, EditRecord, DeleteRecord, GetRecord, MyRecords: the caller's
//     own collection
//   - RecordsByUser, CollectionCount, SetCollectionCount, SetOwner,
//     SetPageLimit: owner only
//   - GetOwner, GetPageLimit, Me: public
//   - ListEvents: persisted ledger, scoped to the caller unless owner
//   - StreamEvents: live feed, scoped the same way
//
// # Errors
//
// Store errors map to status codes (PermissionDenied, InvalidArgument,
// FailedPrecondition, NotFound, OutOfRange) and carry an ErrorInfo detail
// whose reason is the stable error code. FromStatus turns them back into the
// records sentinels.
//
// # Idempotency
//
// AddRecord honours the idempotency-key metadata entry. Retries with the
// same key from the same caller return the original id.
//
// # Usage
//
//	svc := client.NewRecordService(recordStore, logger)
//	svc.SetEventStore(ledgerStore)
//	svc.SetBroadcaster(broadcaster)
//	client.RegisterRecordServiceServer(grpcServer, svc)
package client
