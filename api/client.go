package api

import (
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/context"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/protobuf/types/known/structpb"
)

// ErrNotConnected is returned by the calls of a closed client.
var ErrNotConnected = errors.New("client is not connected")

// Client of the management service.
type Client struct {
	sync.RWMutex
	address string
	con     *grpc.ClientConn
}

// Dial connects to the management service at address.
func Dial(address string) (*Client, error) {
	c := &Client{address: address}
	network, addr := ParseAddress(address)

	var err error
	if network == "unix" {
		c.con, err = grpc.Dial(addr, grpc.WithInsecure(),
			grpc.WithDialer(func(addr string, timeout time.Duration) (net.Conn, error) {
				return net.DialTimeout("unix", addr, timeout)
			}))
	} else {
		c.con, err = grpc.Dial(addr, grpc.WithInsecure())
	}
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s", address)
	}
	return c, nil
}

// Connected checks if the client has established a connection with the
// server.
func (c *Client) Connected() bool {
	c.RLock()
	defer c.RUnlock()
	if c.con == nil || c.con.GetState() != connectivity.Ready {
		return false
	}
	return true
}

// Close closes the connection.
func (c *Client) Close() error {
	c.Lock()
	defer c.Unlock()
	if c.con == nil {
		return nil
	}
	err := c.con.Close()
	c.con = nil
	return err
}

func (c *Client) call(ctx context.Context, method string, in map[string]interface{}) (*structpb.Struct, error) {
	c.RLock()
	con := c.con
	c.RUnlock()
	if con == nil {
		return nil, ErrNotConnected
	}
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, errors.Wrap(err, "encoding request")
	}
	reply := new(structpb.Struct)
	if err := con.Invoke(ctx, fullMethod(method), req, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func stringList(v *structpb.Value) []string {
	var out []string
	for _, item := range v.GetListValue().GetValues() {
		out = append(out, item.GetStringValue())
	}
	return out
}

// Tables lists the tables of the program.
func (c *Client) Tables(ctx context.Context) ([]string, error) {
	reply, err := c.call(ctx, MethodTables, map[string]interface{}{})
	if err != nil {
		return nil, err
	}
	return stringList(reply.Fields["tables"]), nil
}

// Info returns the description and the commands of a table.
func (c *Client) Info(ctx context.Context, tableName string) (info, commands []string, err error) {
	reply, err := c.call(ctx, MethodInfo, map[string]interface{}{"table": tableName})
	if err != nil {
		return nil, nil, err
	}
	return stringList(reply.Fields["info"]), stringList(reply.Fields["commands"]), nil
}

// Exec runs a command line and returns its output.
func (c *Client) Exec(ctx context.Context, line string) (string, error) {
	reply, err := c.call(ctx, MethodExec, map[string]interface{}{"line": line})
	if err != nil {
		return "", err
	}
	return reply.Fields["output"].GetStringValue(), nil
}

// Dump returns the entries of a table, in the JSON interchange format.
func (c *Client) Dump(ctx context.Context, tableName string, fromHW bool) ([]map[string]interface{}, error) {
	reply, err := c.call(ctx, MethodDump, map[string]interface{}{"table": tableName, "from_hw": fromHW})
	if err != nil {
		return nil, err
	}
	var out []map[string]interface{}
	for _, e := range reply.Fields["entries"].GetListValue().GetValues() {
		out = append(out, e.GetStructValue().AsMap())
	}
	return out, nil
}

// Get reads an entry. It returns the entry in the JSON interchange format
// and as text.
func (c *Client) Get(ctx context.Context, tableName string, key map[string]interface{}, fromHW bool) (map[string]interface{}, string, error) {
	reply, err := c.call(ctx, MethodGet, map[string]interface{}{
		"table":   tableName,
		"key":     key,
		"from_hw": fromHW,
	})
	if err != nil {
		return nil, "", err
	}
	return reply.Fields["entry"].GetStructValue().AsMap(), reply.Fields["text"].GetStringValue(), nil
}

// Add writes a new entry.
func (c *Client) Add(ctx context.Context, tableName string, key, data map[string]interface{}, action string) error {
	_, err := c.call(ctx, MethodAdd, map[string]interface{}{
		"table":  tableName,
		"key":    key,
		"data":   data,
		"action": action,
	})
	return err
}

// Delete removes an entry.
func (c *Client) Delete(ctx context.Context, tableName string, key map[string]interface{}) error {
	_, err := c.call(ctx, MethodDelete, map[string]interface{}{"table": tableName, "key": key})
	return err
}

// Stats returns the statistics of the daemon.
func (c *Client) Stats(ctx context.Context) (map[string]interface{}, error) {
	reply, err := c.call(ctx, MethodStats, map[string]interface{}{})
	if err != nil {
		return nil, err
	}
	return reply.AsMap(), nil
}
