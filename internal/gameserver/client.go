package gameserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client is a typed wrapper over the inventory service.
// Errors are gRPC status errors as returned by the server.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes method with a raw request.
func (c *Client) Call(ctx context.Context, method string, req map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) number(ctx context.Context, method, field string, req map[string]any) (int, error) {
	out, err := c.Call(ctx, method, req)
	if err != nil {
		return 0, err
	}
	return int(out.GetFields()[field].GetNumberValue()), nil
}

// CreateInventory creates an inventory; slots <= 0 selects the server default.
func (c *Client) CreateInventory(ctx context.Context, slots int) (string, error) {
	req := map[string]any{}
	if slots > 0 {
		req["slots"] = slots
	}
	out, err := c.Call(ctx, "CreateInventory", req)
	if err != nil {
		return "", err
	}
	return out.GetFields()["inventory_id"].GetStringValue(), nil
}

// RemoveInventory removes an inventory and reports whether it existed.
func (c *Client) RemoveInventory(ctx context.Context, invID string) (bool, error) {
	out, err := c.Call(ctx, "RemoveInventory", map[string]any{"inventory_id": invID})
	if err != nil {
		return false, err
	}
	return out.GetFields()["removed"].GetBoolValue(), nil
}

// AddItem returns the number of units placed.
func (c *Client) AddItem(ctx context.Context, invID, itemID string, quantity int) (int, error) {
	return c.number(ctx, "AddItem", "added", map[string]any{
		"inventory_id": invID, "item_id": itemID, "quantity": quantity,
	})
}

// RemoveItem returns the number of units removed.
func (c *Client) RemoveItem(ctx context.Context, invID, itemID string, quantity int) (int, error) {
	return c.number(ctx, "RemoveItem", "removed", map[string]any{
		"inventory_id": invID, "item_id": itemID, "quantity": quantity,
	})
}

// TakeItem returns the exact item IDs taken with their counts.
func (c *Client) TakeItem(ctx context.Context, invID, itemID string, quantity int) (map[string]int, error) {
	out, err := c.Call(ctx, "TakeItem", map[string]any{
		"inventory_id": invID, "item_id": itemID, "quantity": quantity,
	})
	if err != nil {
		return nil, err
	}
	return counts(out.GetFields()["taken"].GetStructValue()), nil
}

// Transfer returns the number of units moved.
func (c *Client) Transfer(ctx context.Context, from, to, itemID string, quantity int) (int, error) {
	return c.number(ctx, "Transfer", "moved", map[string]any{
		"from": from, "to": to, "item_id": itemID, "quantity": quantity,
	})
}

// Items returns the item counts held by an inventory.
func (c *Client) Items(ctx context.Context, invID string) (map[string]int, error) {
	out, err := c.Call(ctx, "Items", map[string]any{"inventory_id": invID})
	if err != nil {
		return nil, err
	}
	return counts(out.GetFields()["items"].GetStructValue()), nil
}

// HasCapacity reports whether items fit in full.
func (c *Client) HasCapacity(ctx context.Context, invID string, items map[string]int) (bool, error) {
	req := make(map[string]any, len(items))
	for id, n := range items {
		req[id] = n
	}
	out, err := c.Call(ctx, "HasCapacity", map[string]any{"inventory_id": invID, "items": req})
	if err != nil {
		return false, err
	}
	return out.GetFields()["fits"].GetBoolValue(), nil
}

// CreateModifiedItem creates a modified item of baseID; an empty id lets the
// server generate one.
func (c *Client) CreateModifiedItem(ctx context.Context, baseID, id string) (string, error) {
	req := map[string]any{"base_id": baseID}
	if id != "" {
		req["item_id"] = id
	}
	out, err := c.Call(ctx, "CreateModifiedItem", req)
	if err != nil {
		return "", err
	}
	return out.GetFields()["item_id"].GetStringValue(), nil
}

// SetStatDelta sets a modified item's delta for statistic.
func (c *Client) SetStatDelta(ctx context.Context, itemID, statistic string, value int) error {
	_, err := c.Call(ctx, "SetStatDelta", map[string]any{
		"item_id": itemID, "statistic": statistic, "value": value,
	})
	return err
}

// StatValue returns an item's effective statistic.
func (c *Client) StatValue(ctx context.Context, itemID, statistic string) (int, error) {
	return c.number(ctx, "StatValue", "value", map[string]any{"item_id": itemID, "statistic": statistic})
}

func counts(s *structpb.Struct) map[string]int {
	out := make(map[string]int, len(s.GetFields()))
	for id, v := range s.GetFields() {
		out[id] = int(v.GetNumberValue())
	}
	return out
}
