// ABOUTME: Small Struct builders shared by the client package tests
// ABOUTME: Lets tests send raw requests that bypass RecordClient validation

package client

import "google.golang.org/protobuf/types/known/structpb"

type structpbStruct = structpb.Struct

func newStruct(fields map[string]string) *structpb.Struct {
	s := &structpb.Struct{Fields: map[string]*structpb.Value{}}
	for k, v := range fields {
		s.Fields[k] = structpb.NewStringValue(v)
	}
	return s
}
