// Package gameserver exposes an inventory.Manager to game logic processes over
// gRPC.
//
// Messages are google.protobuf.Struct values so the service needs no
// generated code; the wire contract is the set of field names documented on
// each method. Integer fields travel as JSON numbers and must be integral.
package gameserver

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/stash/internal/game/inventory"
	"github.com/cory-johannsen/stash/internal/game/item"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "stash.inventory.v1.InventoryService"

// Options bounds client-controlled inventory sizes.
type Options struct {
	// DefaultSlots is used when CreateInventory omits "slots".
	DefaultSlots int
	// MaxSlots is the largest slot count a client may request.
	MaxSlots int
}

// InventoryService implements the inventory gRPC service on top of a Manager.
type InventoryService struct {
	mgr    *inventory.Manager
	opts   Options
	logger *zap.Logger
}

// NewInventoryService creates an InventoryService.
//
// Precondition: mgr and logger must be non-nil; 1 <= opts.DefaultSlots <= opts.MaxSlots.
func NewInventoryService(mgr *inventory.Manager, opts Options, logger *zap.Logger) *InventoryService {
	return &InventoryService{mgr: mgr, opts: opts, logger: logger}
}

// Register attaches the service to s.
func (s *InventoryService) Register(gs grpc.ServiceRegistrar) {
	gs.RegisterService(&serviceDesc, s)
}

func (s *InventoryService) inventoryService() {}

// inventoryServer is the handler type checked by grpc.Server.RegisterService.
type inventoryServer interface {
	inventoryService()
}

type handler func(s *InventoryService, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func unary(name string, h handler) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(*InventoryService)
			if interceptor == nil {
				return h(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return h(s, ctx, req.(*structpb.Struct))
			})
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*inventoryServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateInventory", (*InventoryService).createInventory),
		unary("RemoveInventory", (*InventoryService).removeInventory),
		unary("AddItem", (*InventoryService).addItem),
		unary("RemoveItem", (*InventoryService).removeItem),
		unary("TakeItem", (*InventoryService).takeItem),
		unary("Transfer", (*InventoryService).transfer),
		unary("Items", (*InventoryService).items),
		unary("HasCapacity", (*InventoryService).hasCapacity),
		unary("SpareCapacity", (*InventoryService).spareCapacity),
		unary("CreateModifiedItem", (*InventoryService).createModifiedItem),
		unary("SetStatDelta", (*InventoryService).setStatDelta),
		unary("StatValue", (*InventoryService).statValue),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "stash/inventory/v1/inventory.proto",
}

// createInventory: {slots?} -> {inventory_id}
func (s *InventoryService) createInventory(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	slots, err := intField(req, "slots", s.opts.DefaultSlots)
	if err != nil {
		return nil, err
	}
	if slots < 0 || slots > s.opts.MaxSlots {
		return nil, status.Errorf(codes.InvalidArgument, "slots must be 0-%d, got %d", s.opts.MaxSlots, slots)
	}
	id, err := s.mgr.CreateInventory(slots)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return response(map[string]any{"inventory_id": id})
}

// removeInventory: {inventory_id} -> {removed}
func (s *InventoryService) removeInventory(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := stringField(req, "inventory_id")
	if err != nil {
		return nil, err
	}
	return response(map[string]any{"removed": s.mgr.RemoveInventory(id)})
}

// addItem: {inventory_id, item_id, quantity?} -> {added}
func (s *InventoryService) addItem(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	invID, itemID, qty, err := itemRequest(req)
	if err != nil {
		return nil, err
	}
	added, err := s.mgr.AddItem(invID, itemID, qty)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return response(map[string]any{"added": added})
}

// removeItem: {inventory_id, item_id, quantity?} -> {removed}
func (s *InventoryService) removeItem(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	invID, itemID, qty, err := itemRequest(req)
	if err != nil {
		return nil, err
	}
	removed, err := s.mgr.RemoveItem(invID, itemID, qty)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return response(map[string]any{"removed": removed})
}

// takeItem: {inventory_id, item_id, quantity?} -> {taken: {id: n}, not_taken}
func (s *InventoryService) takeItem(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	invID, itemID, qty, err := itemRequest(req)
	if err != nil {
		return nil, err
	}
	taken, err := s.mgr.TakeItem(invID, itemID, qty)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return response(map[string]any{
		"taken":     quantitiesValue(taken),
		"not_taken": qty - taken.Total(),
	})
}

// transfer: {from, to, item_id, quantity?} -> {moved}
func (s *InventoryService) transfer(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	from, err := stringField(req, "from")
	if err != nil {
		return nil, err
	}
	to, err := stringField(req, "to")
	if err != nil {
		return nil, err
	}
	itemID, err := stringField(req, "item_id")
	if err != nil {
		return nil, err
	}
	qty, err := intField(req, "quantity", 1)
	if err != nil {
		return nil, err
	}
	moved, err := s.mgr.Transfer(from, to, itemID, qty)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return response(map[string]any{"moved": moved})
}

// items: {inventory_id} -> {items: {id: n}, slots: [{item_id, quantity, instance_ids}]}
func (s *InventoryService) items(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	invID, err := stringField(req, "inventory_id")
	if err != nil {
		return nil, err
	}
	var (
		held  *inventory.Quantities
		slots []any
	)
	err = s.mgr.ViewInventory(invID, func(inv *inventory.Inventory) error {
		held = inv.Items()
		slots = make([]any, inv.NumSlots())
		for i := range slots {
			sl := inv.Slot(i)
			instances := make([]any, 0, len(sl.InstanceIDs()))
			for _, id := range sl.InstanceIDs() {
				instances = append(instances, id)
			}
			slots[i] = map[string]any{
				"item_id":      sl.ItemID(),
				"quantity":     sl.Quantity(),
				"instance_ids": instances,
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.toStatus(err)
	}
	return response(map[string]any{"items": quantitiesValue(held), "slots": slots})
}

// hasCapacity: {inventory_id, items: {id: n}} -> {fits}
func (s *InventoryService) hasCapacity(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	invID, err := stringField(req, "inventory_id")
	if err != nil {
		return nil, err
	}
	q, err := s.quantitiesField(req, "items")
	if err != nil {
		return nil, err
	}
	fits, err := s.mgr.HasCapacity(invID, q)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return response(map[string]any{"fits": fits})
}

// spareCapacity: {inventory_ids: [...]} -> {slots, headroom: {id: n}}
func (s *InventoryService) spareCapacity(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	v, ok := req.GetFields()["inventory_ids"]
	if !ok || v.GetListValue() == nil {
		return nil, status.Error(codes.InvalidArgument, "inventory_ids must be a list")
	}
	var ids []string
	for _, e := range v.GetListValue().GetValues() {
		id, ok := e.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, status.Error(codes.InvalidArgument, "inventory_ids must hold strings")
		}
		ids = append(ids, id.StringValue)
	}
	c, err := s.mgr.SpareCapacity(ids...)
	if err != nil {
		return nil, s.toStatus(err)
	}
	headroom := make(map[string]any)
	for _, id := range c.HeadroomIDs() {
		headroom[id] = c.Headroom(id)
	}
	return response(map[string]any{"slots": c.Slots(), "headroom": headroom})
}

// createModifiedItem: {base_id, item_id?} -> {item_id}
func (s *InventoryService) createModifiedItem(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	base, err := stringField(req, "base_id")
	if err != nil {
		return nil, err
	}
	explicit := req.GetFields()["item_id"].GetStringValue()
	id, err := s.mgr.CreateModifiedItem(base, explicit)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return response(map[string]any{"item_id": id})
}

// setStatDelta: {item_id, statistic, value} -> {}
func (s *InventoryService) setStatDelta(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := stringField(req, "item_id")
	if err != nil {
		return nil, err
	}
	stat, err := stringField(req, "statistic")
	if err != nil {
		return nil, err
	}
	if _, ok := req.GetFields()["value"]; !ok {
		return nil, status.Error(codes.InvalidArgument, "value is required")
	}
	value, err := intField(req, "value", 0)
	if err != nil {
		return nil, err
	}
	if err := s.mgr.SetStatDelta(id, item.Statistic(stat), value); err != nil {
		return nil, s.toStatus(err)
	}
	return response(nil)
}

// statValue: {item_id, statistic} -> {value}
func (s *InventoryService) statValue(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := stringField(req, "item_id")
	if err != nil {
		return nil, err
	}
	stat, err := stringField(req, "statistic")
	if err != nil {
		return nil, err
	}
	v, err := s.mgr.Items().StatValue(id, item.Statistic(stat))
	if err != nil {
		return nil, s.toStatus(err)
	}
	return response(map[string]any{"value": v})
}

// toStatus maps engine errors onto gRPC status codes.
func (s *InventoryService) toStatus(err error) error {
	switch {
	case errors.Is(err, item.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, item.ErrInvalidOperation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, inventory.ErrUnderflow):
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	s.logger.Error("unexpected inventory error", zap.Error(err))
	return status.Error(codes.Internal, err.Error())
}

func itemRequest(req *structpb.Struct) (invID, itemID string, qty int, err error) {
	if invID, err = stringField(req, "inventory_id"); err != nil {
		return "", "", 0, err
	}
	if itemID, err = stringField(req, "item_id"); err != nil {
		return "", "", 0, err
	}
	if qty, err = intField(req, "quantity", 1); err != nil {
		return "", "", 0, err
	}
	return invID, itemID, qty, nil
}

func (s *InventoryService) quantitiesField(req *structpb.Struct, name string) (*inventory.Quantities, error) {
	q := inventory.NewQuantities(s.mgr.Items())
	v, ok := req.GetFields()[name]
	if !ok {
		return q, nil
	}
	st := v.GetStructValue()
	if st == nil {
		return nil, status.Errorf(codes.InvalidArgument, "%s must be an object of item id to quantity", name)
	}
	m := make(map[string]int, len(st.GetFields()))
	for id := range st.GetFields() {
		n, err := intField(st, id, 0)
		if err != nil {
			return nil, err
		}
		m[id] = n
	}
	q, err := inventory.QuantitiesOf(s.mgr.Items(), m)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return q, nil
}

func stringField(req *structpb.Struct, name string) (string, error) {
	v, ok := req.GetFields()[name].GetKind().(*structpb.Value_StringValue)
	if !ok || v.StringValue == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s must be a non-empty string", name)
	}
	return v.StringValue, nil
}

func intField(req *structpb.Struct, name string, def int) (int, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return def, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue != float64(int(n.NumberValue)) {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be an integer", name)
	}
	return int(n.NumberValue), nil
}

func quantitiesValue(q *inventory.Quantities) map[string]any {
	out := make(map[string]any, q.Len())
	q.Each(func(id string, n int) { out[id] = n })
	return out
}

func response(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encoding response: %v", err))
	}
	return out, nil
}
