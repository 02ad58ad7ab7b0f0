package api

import (
	"encoding/json"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/golang/protobuf/jsonpb"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/tdictl/tdid/log"
	"github.com/tdictl/tdid/statistics"
	"github.com/tdictl/tdid/tdi/backend"
	"github.com/tdictl/tdid/tdi/commands"
	"github.com/tdictl/tdid/tdi/table"
	"golang.org/x/net/context"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ParseAddress splits an address in its network and path.
// unix:///path and unix:path are unix sockets, anything else is tcp.
func ParseAddress(address string) (network, addr string) {
	if strings.HasPrefix(address, "unix://") {
		return "unix", address[7:]
	}
	if strings.HasPrefix(address, "unix:") {
		return "unix", address[5:]
	}
	return "tcp", address
}

// Server implements the management service on top of a program.
type Server struct {
	sync.RWMutex

	session  string
	prog     *table.Program
	registry *commands.Registry
	stats    *statistics.Statistics

	grpcServer *grpc.Server
	listener   net.Listener
	wg         sync.WaitGroup
}

// NewServer returns a server for prog. stats may be nil.
func NewServer(prog *table.Program, registry *commands.Registry, stats *statistics.Statistics) *Server {
	return &Server{
		session:  uuid.New().String(),
		prog:     prog,
		registry: registry,
		stats:    stats,
	}
}

// SetProgram replaces the program served, after a reload.
func (s *Server) SetProgram(prog *table.Program, registry *commands.Registry) {
	s.Lock()
	defer s.Unlock()
	s.prog = prog
	s.registry = registry
}

// Session returns the id of this server instance.
func (s *Server) Session() string {
	return s.session
}

// Serve starts listening on address and serves the requests in the
// background.
func (s *Server) Serve(address string) error {
	network, addr := ParseAddress(address)
	if network == "unix" {
		if err := os.Remove(addr); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "removing stale socket %s", addr)
		}
	}
	listener, err := net.Listen(network, addr)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", address)
	}

	srv := grpc.NewServer()
	RegisterManagerServer(srv, s)
	s.Lock()
	s.listener = listener
	s.grpcServer = srv
	s.Unlock()

	log.Info("management API listening on %s, session %s", address, s.session)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := srv.Serve(listener); err != nil {
			log.Error("management API stopped: %s", err)
		}
	}()
	return nil
}

// Stop stops serving and waits for the pending requests.
func (s *Server) Stop() {
	s.Lock()
	srv := s.grpcServer
	s.grpcServer = nil
	s.Unlock()
	if srv == nil {
		return
	}
	srv.GracefulStop()
	s.wg.Wait()
	log.Debug("management API stopped")
}

func (s *Server) current() (*table.Program, *commands.Registry) {
	s.RLock()
	defer s.RUnlock()
	return s.prog, s.registry
}

// statusError converts an error to a gRPC status.
func statusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	code := codes.Unknown
	switch errors.Cause(err) {
	case commands.ErrUnknownTable:
		code = codes.NotFound
	case commands.ErrUnknownCommand, table.ErrNotSupported:
		code = codes.Unimplemented
	case commands.ErrUsage:
		code = codes.InvalidArgument
	default:
		switch table.StatusOf(err) {
		case backend.ObjectNotFound, backend.TableNotFound:
			code = codes.NotFound
		case backend.AlreadyExists:
			code = codes.AlreadyExists
		case backend.InvalidArg:
			code = codes.InvalidArgument
		case backend.NoSpace, backend.NoSysResources:
			code = codes.ResourceExhausted
		case backend.NotSupported, backend.NotImplemented:
			code = codes.Unimplemented
		}
	}
	return status.Error(code, err.Error())
}

func stringField(in *structpb.Struct, name string) string {
	if v, found := in.GetFields()[name]; found {
		return v.GetStringValue()
	}
	return ""
}

func boolField(in *structpb.Struct, name string) bool {
	if v, found := in.GetFields()[name]; found {
		return v.GetBoolValue()
	}
	return false
}

// entryFields decodes an object of the request the way a JSON entry is
// decoded, numbers keep their precision.
func entryFields(in *structpb.Struct, name string) (table.Fields, error) {
	out := table.Fields{}
	v, found := in.GetFields()[name]
	if !found {
		return out, nil
	}
	obj := v.GetStructValue()
	if obj == nil {
		return nil, status.Errorf(codes.InvalidArgument, "%s must be an object", name)
	}
	raw, err := (&jsonpb.Marshaler{}).MarshalToString(obj)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%s: %s", name, err)
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%s: %s", name, err)
	}
	return out, nil
}

// fromJSON builds a reply from a JSON object.
func fromJSON(raw []byte) (*structpb.Struct, error) {
	out := &structpb.Struct{}
	if err := jsonpb.UnmarshalString(string(raw), out); err != nil {
		return nil, status.Errorf(codes.Internal, "encoding reply: %s", err)
	}
	return out, nil
}

func (s *Server) table(in *structpb.Struct) (*table.Table, error) {
	_, registry := s.current()
	name := stringField(in, "table")
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "table is required")
	}
	n := registry.Node(name)
	if n == nil {
		return nil, status.Errorf(codes.NotFound, "unknown table %s", name)
	}
	return n.Table(), nil
}

// Tables returns the names of the tables of the program.
func (s *Server) Tables(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	prog, _ := s.current()
	names := make([]interface{}, 0)
	for _, name := range prog.Names() {
		names = append(names, name)
	}
	return structpb.NewStruct(map[string]interface{}{"tables": names})
}

// Info describes a table and lists its commands.
func (s *Server) Info(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	t, err := s.table(in)
	if err != nil {
		return nil, err
	}
	_, registry := s.current()
	info := make([]interface{}, 0)
	for _, line := range t.Info() {
		info = append(info, line)
	}
	cmds := make([]interface{}, 0)
	for _, name := range registry.Node(t.Name()).Names() {
		cmds = append(cmds, name)
	}
	return structpb.NewStruct(map[string]interface{}{
		"table":    t.Name(),
		"info":     info,
		"commands": cmds,
	})
}

// Exec runs a command line.
func (s *Server) Exec(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	_, registry := s.current()
	line := stringField(in, "line")
	log.Debug("api exec: %s", line)
	out, err := registry.Run(ctx, line)
	if err != nil {
		return nil, statusError(err)
	}
	return structpb.NewStruct(map[string]interface{}{"output": out})
}

// Dump returns every entry of a table.
func (s *Server) Dump(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	t, err := s.table(in)
	if err != nil {
		return nil, err
	}
	entries, err := t.DumpJSON(ctx, boolField(in, "from_hw"))
	if err != nil && !table.IsNotFound(err) {
		return nil, statusError(err)
	}
	if len(entries) == 0 || err != nil {
		entries = []byte("[]")
	}
	name, _ := json.Marshal(t.Name())
	return fromJSON([]byte(`{"table":` + string(name) + `,"entries":` + string(entries) + `}`))
}

// Get reads one entry.
func (s *Server) Get(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	t, err := s.table(in)
	if err != nil {
		return nil, err
	}
	key, err := entryFields(in, "key")
	if err != nil {
		return nil, err
	}
	e, err := t.Get(ctx, key, table.GetOptions{FromHW: boolField(in, "from_hw")})
	if err != nil {
		return nil, statusError(err)
	}
	raw, err := e.JSON()
	if err != nil {
		return nil, statusError(err)
	}
	text, _ := json.Marshal(e.String())
	return fromJSON([]byte(`{"entry":` + string(raw) + `,"text":` + string(text) + `}`))
}

// Add writes a new entry.
func (s *Server) Add(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	t, err := s.table(in)
	if err != nil {
		return nil, err
	}
	key, err := entryFields(in, "key")
	if err != nil {
		return nil, err
	}
	data, err := entryFields(in, "data")
	if err != nil {
		return nil, err
	}
	if err := t.Add(ctx, key, data, stringField(in, "action")); err != nil {
		return nil, statusError(err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{}}, nil
}

// Delete removes an entry.
func (s *Server) Delete(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	t, err := s.table(in)
	if err != nil {
		return nil, err
	}
	key, err := entryFields(in, "key")
	if err != nil {
		return nil, err
	}
	if err := t.Delete(ctx, key); err != nil {
		return nil, statusError(err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{}}, nil
}

// Stats returns the statistics collected since the last call.
func (s *Server) Stats(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	out := map[string]interface{}{}
	if s.stats != nil {
		out = s.stats.Serialize()
	}
	out["session"] = s.session
	reply, err := structpb.NewStruct(out)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding statistics: %s", err)
	}
	return reply, nil
}
