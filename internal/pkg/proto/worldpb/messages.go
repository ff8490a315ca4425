package worldpb

import (
	"fmt"

	"fulfillment/internal/pkg/proto/pbutil"

	"google.golang.org/protobuf/encoding/protowire"
)

// Product is AProduct.
type Product struct {
	ID          int64
	Description string
	Count       int32
}

func (m *Product) appendTo(b []byte) []byte {
	b = pbutil.AppendInt64(b, 1, m.ID)
	b = pbutil.AppendString(b, 2, m.Description)
	return pbutil.AppendInt32(b, 3, m.Count)
}

func (m *Product) unmarshal(b []byte) error {
	req := pbutil.NewRequired("AProduct", map[protowire.Number]string{1: "id", 2: "description", 3: "count"})
	err := pbutil.Range(b, func(f pbutil.Field) error {
		req.Seen(f.Num)
		switch f.Num {
		case 1:
			m.ID = f.Int64()
		case 2:
			m.Description = f.Text()
		case 3:
			m.Count = f.Int32()
		}
		return nil
	})
	if err != nil {
		return err
	}
	return req.Check()
}

// InitWarehouse is AInitWarehouse.
type InitWarehouse struct {
	ID int32
	X  int32
	Y  int32
}

func (m *InitWarehouse) appendTo(b []byte) []byte {
	b = pbutil.AppendInt32(b, 1, m.ID)
	b = pbutil.AppendInt32(b, 2, m.X)
	return pbutil.AppendInt32(b, 3, m.Y)
}

func (m *InitWarehouse) unmarshal(b []byte) error {
	return pbutil.Range(b, func(f pbutil.Field) error {
		switch f.Num {
		case 1:
			m.ID = f.Int32()
		case 2:
			m.X = f.Int32()
		case 3:
			m.Y = f.Int32()
		}
		return nil
	})
}

// Connect is AConnect, the registration request.
type Connect struct {
	WorldID    *int64
	Warehouses []InitWarehouse
	IsAmazon   bool
}

func (m *Connect) Marshal() ([]byte, error) {
	var b []byte
	if m.WorldID != nil {
		b = pbutil.AppendInt64(b, 1, *m.WorldID)
	}
	for i := range m.Warehouses {
		b = pbutil.AppendMessage(b, 2, m.Warehouses[i].appendTo)
	}
	return pbutil.AppendBool(b, 3, m.IsAmazon), nil
}

func (m *Connect) Unmarshal(b []byte) error {
	*m = Connect{}
	return pbutil.Range(b, func(f pbutil.Field) error {
		switch f.Num {
		case 1:
			id := f.Int64()
			m.WorldID = &id
		case 2:
			var wh InitWarehouse
			if err := wh.unmarshal(f.Bytes); err != nil {
				return fmt.Errorf("AConnect.initwh: %w", err)
			}
			m.Warehouses = append(m.Warehouses, wh)
		case 3:
			m.IsAmazon = f.Bool()
		}
		return nil
	})
}

// Connected is AConnected, the registration answer.
type Connected struct {
	WorldID int64
	Result  string
}

func (m *Connected) Marshal() ([]byte, error) {
	b := pbutil.AppendInt64(nil, 1, m.WorldID)
	return pbutil.AppendString(b, 2, m.Result), nil
}

func (m *Connected) Unmarshal(b []byte) error {
	*m = Connected{}
	req := pbutil.NewRequired("AConnected", map[protowire.Number]string{1: "worldid", 2: "result"})
	err := pbutil.Range(b, func(f pbutil.Field) error {
		req.Seen(f.Num)
		switch f.Num {
		case 1:
			m.WorldID = f.Int64()
		case 2:
			m.Result = f.Text()
		}
		return nil
	})
	if err != nil {
		return err
	}
	return req.Check()
}

// PurchaseMore is APurchaseMore: a buy command and, echoed back, an arrival.
type PurchaseMore struct {
	WarehouseNum int32
	Things       []Product
	SeqNum       int64
}

func (m *PurchaseMore) appendTo(b []byte) []byte {
	b = pbutil.AppendInt32(b, 1, m.WarehouseNum)
	for i := range m.Things {
		b = pbutil.AppendMessage(b, 2, m.Things[i].appendTo)
	}
	return pbutil.AppendInt64(b, 3, m.SeqNum)
}

func (m *PurchaseMore) unmarshal(b []byte) error {
	return pbutil.Range(b, func(f pbutil.Field) error {
		switch f.Num {
		case 1:
			m.WarehouseNum = f.Int32()
		case 2:
			var p Product
			if err := p.unmarshal(f.Bytes); err != nil {
				return err
			}
			m.Things = append(m.Things, p)
		case 3:
			m.SeqNum = f.Int64()
		}
		return nil
	})
}

// Pack is APack.
type Pack struct {
	WarehouseNum int32
	Things       []Product
	ShipID       int64
	SeqNum       int64
}

func (m *Pack) appendTo(b []byte) []byte {
	b = pbutil.AppendInt32(b, 1, m.WarehouseNum)
	for i := range m.Things {
		b = pbutil.AppendMessage(b, 2, m.Things[i].appendTo)
	}
	b = pbutil.AppendInt64(b, 3, m.ShipID)
	return pbutil.AppendInt64(b, 4, m.SeqNum)
}

func (m *Pack) unmarshal(b []byte) error {
	return pbutil.Range(b, func(f pbutil.Field) error {
		switch f.Num {
		case 1:
			m.WarehouseNum = f.Int32()
		case 2:
			var p Product
			if err := p.unmarshal(f.Bytes); err != nil {
				return err
			}
			m.Things = append(m.Things, p)
		case 3:
			m.ShipID = f.Int64()
		case 4:
			m.SeqNum = f.Int64()
		}
		return nil
	})
}

// Shipment is the shape shared by APacked and ALoaded.
type Shipment struct {
	ShipID int64
	SeqNum int64
}

func (m *Shipment) appendTo(b []byte) []byte {
	b = pbutil.AppendInt64(b, 1, m.ShipID)
	return pbutil.AppendInt64(b, 2, m.SeqNum)
}

func (m *Shipment) unmarshal(b []byte) error {
	return pbutil.Range(b, func(f pbutil.Field) error {
		switch f.Num {
		case 1:
			m.ShipID = f.Int64()
		case 2:
			m.SeqNum = f.Int64()
		}
		return nil
	})
}

// PutOnTruck is APutOnTruck.
type PutOnTruck struct {
	WarehouseNum int32
	TruckID      int32
	ShipID       int64
	SeqNum       int64
}

func (m *PutOnTruck) appendTo(b []byte) []byte {
	b = pbutil.AppendInt32(b, 1, m.WarehouseNum)
	b = pbutil.AppendInt32(b, 2, m.TruckID)
	b = pbutil.AppendInt64(b, 3, m.ShipID)
	return pbutil.AppendInt64(b, 4, m.SeqNum)
}

func (m *PutOnTruck) unmarshal(b []byte) error {
	return pbutil.Range(b, func(f pbutil.Field) error {
		switch f.Num {
		case 1:
			m.WarehouseNum = f.Int32()
		case 2:
			m.TruckID = f.Int32()
		case 3:
			m.ShipID = f.Int64()
		case 4:
			m.SeqNum = f.Int64()
		}
		return nil
	})
}

// Query is AQuery.
type Query struct {
	PackageID int64
	SeqNum    int64
}

func (m *Query) appendTo(b []byte) []byte {
	b = pbutil.AppendInt64(b, 1, m.PackageID)
	return pbutil.AppendInt64(b, 2, m.SeqNum)
}

func (m *Query) unmarshal(b []byte) error {
	return pbutil.Range(b, func(f pbutil.Field) error {
		switch f.Num {
		case 1:
			m.PackageID = f.Int64()
		case 2:
			m.SeqNum = f.Int64()
		}
		return nil
	})
}

// Err is AErr.
type Err struct {
	Err          string
	OriginSeqNum int64
	SeqNum       int64
}

func (m *Err) appendTo(b []byte) []byte {
	b = pbutil.AppendString(b, 1, m.Err)
	b = pbutil.AppendInt64(b, 2, m.OriginSeqNum)
	return pbutil.AppendInt64(b, 3, m.SeqNum)
}

func (m *Err) unmarshal(b []byte) error {
	return pbutil.Range(b, func(f pbutil.Field) error {
		switch f.Num {
		case 1:
			m.Err = f.Text()
		case 2:
			m.OriginSeqNum = f.Int64()
		case 3:
			m.SeqNum = f.Int64()
		}
		return nil
	})
}

// PackageStatus is APackage, the answer to a Query.
type PackageStatus struct {
	PackageID int64
	Status    string
	SeqNum    int64
}

func (m *PackageStatus) appendTo(b []byte) []byte {
	b = pbutil.AppendInt64(b, 1, m.PackageID)
	b = pbutil.AppendString(b, 2, m.Status)
	return pbutil.AppendInt64(b, 3, m.SeqNum)
}

func (m *PackageStatus) unmarshal(b []byte) error {
	return pbutil.Range(b, func(f pbutil.Field) error {
		switch f.Num {
		case 1:
			m.PackageID = f.Int64()
		case 2:
			m.Status = f.Text()
		case 3:
			m.SeqNum = f.Int64()
		}
		return nil
	})
}
