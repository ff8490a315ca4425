package upspb

import (
	"fulfillment/internal/pkg/proto/pbutil"
)

type Coordinate struct {
	X int32
	Y int32
}

func (m *Coordinate) appendTo(b []byte) []byte {
	b = pbutil.AppendInt32(b, 1, m.X)
	return pbutil.AppendInt32(b, 2, m.Y)
}

func (m *Coordinate) unmarshal(b []byte) error {
	return pbutil.Range(b, func(f pbutil.Field) error {
		switch f.Num {
		case 1:
			m.X = f.Int32()
		case 2:
			m.Y = f.Int32()
		}
		return nil
	})
}

type ItemInfo struct {
	Name     string
	Quantity int32
}

func (m *ItemInfo) appendTo(b []byte) []byte {
	b = pbutil.AppendString(b, 1, m.Name)
	return pbutil.AppendInt32(b, 2, m.Quantity)
}

func (m *ItemInfo) unmarshal(b []byte) error {
	return pbutil.Range(b, func(f pbutil.Field) error {
		switch f.Num {
		case 1:
			m.Name = f.Text()
		case 2:
			m.Quantity = f.Int32()
		}
		return nil
	})
}

// RequestPickup asks the carrier to send a truck to a warehouse.
type RequestPickup struct {
	SeqNum      int64
	UPSUserID   string
	OrderID     int64
	WarehouseID int32
	Destination Coordinate
	Items       []ItemInfo
}

func (m *RequestPickup) appendTo(b []byte) []byte {
	b = pbutil.AppendInt64(b, 1, m.SeqNum)
	if m.UPSUserID != "" {
		b = pbutil.AppendString(b, 2, m.UPSUserID)
	}
	b = pbutil.AppendInt64(b, 3, m.OrderID)
	b = pbutil.AppendInt32(b, 4, m.WarehouseID)
	b = pbutil.AppendMessage(b, 5, m.Destination.appendTo)
	for i := range m.Items {
		b = pbutil.AppendMessage(b, 6, m.Items[i].appendTo)
	}
	return b
}

func (m *RequestPickup) unmarshal(b []byte) error {
	return pbutil.Range(b, func(f pbutil.Field) error {
		switch f.Num {
		case 1:
			m.SeqNum = f.Int64()
		case 2:
			m.UPSUserID = f.Text()
		case 3:
			m.OrderID = f.Int64()
		case 4:
			m.WarehouseID = f.Int32()
		case 5:
			return m.Destination.unmarshal(f.Bytes)
		case 6:
			var it ItemInfo
			if err := it.unmarshal(f.Bytes); err != nil {
				return err
			}
			m.Items = append(m.Items, it)
		}
		return nil
	})
}

// PackageRef is the shape shared by LoadReady, DeliveryStarted and
// DeliveryComplete.
type PackageRef struct {
	SeqNum    int64
	PackageID int64
}

func (m *PackageRef) appendTo(b []byte) []byte {
	b = pbutil.AppendInt64(b, 1, m.SeqNum)
	return pbutil.AppendInt64(b, 2, m.PackageID)
}

func (m *PackageRef) unmarshal(b []byte) error {
	return pbutil.Range(b, func(f pbutil.Field) error {
		switch f.Num {
		case 1:
			m.SeqNum = f.Int64()
		case 2:
			m.PackageID = f.Int64()
		}
		return nil
	})
}

type PickupResp struct {
	SeqNum    int64
	PackageID int64
	OrderID   int64
	TruckID   int32
}

// Package returns the package the response refers to. Older carriers only fill
// in the order id.
func (m *PickupResp) Package() int64 {
	if m.PackageID != 0 {
		return m.PackageID
	}
	return m.OrderID
}

func (m *PickupResp) appendTo(b []byte) []byte {
	b = pbutil.AppendInt64(b, 1, m.SeqNum)
	b = pbutil.AppendInt64(b, 2, m.PackageID)
	b = pbutil.AppendInt64(b, 3, m.OrderID)
	return pbutil.AppendInt32(b, 4, m.TruckID)
}

func (m *PickupResp) unmarshal(b []byte) error {
	return pbutil.Range(b, func(f pbutil.Field) error {
		switch f.Num {
		case 1:
			m.SeqNum = f.Int64()
		case 2:
			m.PackageID = f.Int64()
		case 3:
			m.OrderID = f.Int64()
		case 4:
			m.TruckID = f.Int32()
		}
		return nil
	})
}

type TruckArrived struct {
	SeqNum      int64
	PackageID   int64
	TruckID     int32
	WarehouseID int32
}

func (m *TruckArrived) appendTo(b []byte) []byte {
	b = pbutil.AppendInt64(b, 1, m.SeqNum)
	b = pbutil.AppendInt64(b, 2, m.PackageID)
	b = pbutil.AppendInt32(b, 3, m.TruckID)
	return pbutil.AppendInt32(b, 4, m.WarehouseID)
}

func (m *TruckArrived) unmarshal(b []byte) error {
	return pbutil.Range(b, func(f pbutil.Field) error {
		switch f.Num {
		case 1:
			m.SeqNum = f.Int64()
		case 2:
			m.PackageID = f.Int64()
		case 3:
			m.TruckID = f.Int32()
		case 4:
			m.WarehouseID = f.Int32()
		}
		return nil
	})
}

// RequestResult answers a redirect or cancel request.
type RequestResult struct {
	SeqNum    int64
	PackageID int64
	Success   bool
	Reason    string
}

func (m *RequestResult) appendTo(b []byte) []byte {
	b = pbutil.AppendInt64(b, 1, m.SeqNum)
	b = pbutil.AppendInt64(b, 2, m.PackageID)
	b = pbutil.AppendBool(b, 3, m.Success)
	if m.Reason != "" {
		b = pbutil.AppendString(b, 4, m.Reason)
	}
	return b
}

func (m *RequestResult) unmarshal(b []byte) error {
	return pbutil.Range(b, func(f pbutil.Field) error {
		switch f.Num {
		case 1:
			m.SeqNum = f.Int64()
		case 2:
			m.PackageID = f.Int64()
		case 3:
			m.Success = f.Bool()
		case 4:
			m.Reason = f.Text()
		}
		return nil
	})
}

type Error struct {
	Err          string
	OriginSeqNum int64
	SeqNum       int64
}

func (m *Error) appendTo(b []byte) []byte {
	b = pbutil.AppendString(b, 1, m.Err)
	b = pbutil.AppendInt64(b, 2, m.OriginSeqNum)
	return pbutil.AppendInt64(b, 3, m.SeqNum)
}

func (m *Error) unmarshal(b []byte) error {
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
