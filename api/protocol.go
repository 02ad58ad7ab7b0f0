// Package api serves the management service of the daemon over gRPC.
//
// Every method of the tdid.Manager service takes and returns a
// google.protobuf.Struct, so the service needs no generated code:
//
//	Tables  {}                                    -> {tables: [...]}
//	Info    {table}                               -> {table, info: [...], commands: [...]}
//	Exec    {line}                                -> {output}
//	Dump    {table, from_hw}                      -> {table, entries: [...]}
//	Get     {table, key: {...}, from_hw}          -> {entry: {...}, text}
//	Add     {table, key: {...}, data: {...}, action} -> {}
//	Delete  {table, key: {...}}                   -> {}
//	Stats   {}                                    -> {session, ...counters}
package api

import (
	"golang.org/x/net/context"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName of the management service.
const ServiceName = "tdid.Manager"

// Method names.
const (
	MethodTables = "Tables"
	MethodInfo   = "Info"
	MethodExec   = "Exec"
	MethodDump   = "Dump"
	MethodGet    = "Get"
	MethodAdd    = "Add"
	MethodDelete = "Delete"
	MethodStats  = "Stats"
)

// ManagerServer is the server side of the management service.
type ManagerServer interface {
	Tables(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Info(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Exec(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Dump(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Get(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Add(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Delete(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Stats(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type methodFunc func(ManagerServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func method(name string, call methodFunc) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ManagerServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod(name),
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(ManagerServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ManagerServer)(nil),
	Methods: []grpc.MethodDesc{
		method(MethodTables, ManagerServer.Tables),
		method(MethodInfo, ManagerServer.Info),
		method(MethodExec, ManagerServer.Exec),
		method(MethodDump, ManagerServer.Dump),
		method(MethodGet, ManagerServer.Get),
		method(MethodAdd, ManagerServer.Add),
		method(MethodDelete, ManagerServer.Delete),
		method(MethodStats, ManagerServer.Stats),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tdid.proto",
}

// RegisterManagerServer registers srv on s.
func RegisterManagerServer(s *grpc.Server, srv ManagerServer) {
	s.RegisterService(&serviceDesc, srv)
}
