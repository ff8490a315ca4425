package upspb

import (
	"fmt"

	"fulfillment/internal/pkg/proto/pbutil"
)

// AmazonToUPS is the batch sent to the carrier.
type AmazonToUPS struct {
	Pickups   []RequestPickup
	LoadReady []PackageRef
	Acks      []int64
}

func (m *AmazonToUPS) Marshal() ([]byte, error) {
	var b []byte
	for i := range m.Pickups {
		b = pbutil.AppendMessage(b, 1, m.Pickups[i].appendTo)
	}
	for i := range m.LoadReady {
		b = pbutil.AppendMessage(b, 2, m.LoadReady[i].appendTo)
	}
	for _, ack := range m.Acks {
		b = pbutil.AppendInt64(b, 5, ack)
	}
	return b, nil
}

func (m *AmazonToUPS) Unmarshal(b []byte) error {
	*m = AmazonToUPS{}
	return pbutil.Range(b, func(f pbutil.Field) error {
		var err error
		switch f.Num {
		case 1:
			var v RequestPickup
			err = v.unmarshal(f.Bytes)
			m.Pickups = append(m.Pickups, v)
		case 2:
			var v PackageRef
			err = v.unmarshal(f.Bytes)
			m.LoadReady = append(m.LoadReady, v)
		case 5:
			var acks []int64
			acks, err = f.Int64s()
			m.Acks = append(m.Acks, acks...)
		}
		if err != nil {
			return fmt.Errorf("AmazonToUPS field %d: %w", f.Num, err)
		}
		return nil
	})
}

// UPSToAmazon is the batch received from the carrier.
type UPSToAmazon struct {
	PickupResps       []PickupResp
	TrucksArrived     []TruckArrived
	DeliveriesStarted []PackageRef
	Delivered         []PackageRef
	RedirectResps     []RequestResult
	CancelResps       []RequestResult
	Acks              []int64
	Errors            []Error
}

// Seqs returns the sequence numbers of every sub-item, in field order.
func (m *UPSToAmazon) Seqs() []int64 {
	var seqs []int64
	for _, v := range m.PickupResps {
		seqs = append(seqs, v.SeqNum)
	}
	for _, v := range m.TrucksArrived {
		seqs = append(seqs, v.SeqNum)
	}
	for _, v := range m.DeliveriesStarted {
		seqs = append(seqs, v.SeqNum)
	}
	for _, v := range m.Delivered {
		seqs = append(seqs, v.SeqNum)
	}
	for _, v := range m.RedirectResps {
		seqs = append(seqs, v.SeqNum)
	}
	for _, v := range m.CancelResps {
		seqs = append(seqs, v.SeqNum)
	}
	for _, v := range m.Errors {
		seqs = append(seqs, v.SeqNum)
	}
	return seqs
}

func (m *UPSToAmazon) Marshal() ([]byte, error) {
	var b []byte
	for i := range m.PickupResps {
		b = pbutil.AppendMessage(b, 1, m.PickupResps[i].appendTo)
	}
	for i := range m.TrucksArrived {
		b = pbutil.AppendMessage(b, 2, m.TrucksArrived[i].appendTo)
	}
	for i := range m.DeliveriesStarted {
		b = pbutil.AppendMessage(b, 3, m.DeliveriesStarted[i].appendTo)
	}
	for i := range m.Delivered {
		b = pbutil.AppendMessage(b, 4, m.Delivered[i].appendTo)
	}
	for i := range m.RedirectResps {
		b = pbutil.AppendMessage(b, 5, m.RedirectResps[i].appendTo)
	}
	for i := range m.CancelResps {
		b = pbutil.AppendMessage(b, 6, m.CancelResps[i].appendTo)
	}
	for _, ack := range m.Acks {
		b = pbutil.AppendInt64(b, 7, ack)
	}
	for i := range m.Errors {
		b = pbutil.AppendMessage(b, 8, m.Errors[i].appendTo)
	}
	return b, nil
}

func (m *UPSToAmazon) Unmarshal(b []byte) error {
	*m = UPSToAmazon{}
	return pbutil.Range(b, func(f pbutil.Field) error {
		var err error
		switch f.Num {
		case 1:
			var v PickupResp
			err = v.unmarshal(f.Bytes)
			m.PickupResps = append(m.PickupResps, v)
		case 2:
			var v TruckArrived
			err = v.unmarshal(f.Bytes)
			m.TrucksArrived = append(m.TrucksArrived, v)
		case 3:
			var v PackageRef
			err = v.unmarshal(f.Bytes)
			m.DeliveriesStarted = append(m.DeliveriesStarted, v)
		case 4:
			var v PackageRef
			err = v.unmarshal(f.Bytes)
			m.Delivered = append(m.Delivered, v)
		case 5:
			var v RequestResult
			err = v.unmarshal(f.Bytes)
			m.RedirectResps = append(m.RedirectResps, v)
		case 6:
			var v RequestResult
			err = v.unmarshal(f.Bytes)
			m.CancelResps = append(m.CancelResps, v)
		case 7:
			var acks []int64
			acks, err = f.Int64s()
			m.Acks = append(m.Acks, acks...)
		case 8:
			var v Error
			err = v.unmarshal(f.Bytes)
			m.Errors = append(m.Errors, v)
		}
		if err != nil {
			return fmt.Errorf("UPSToAmazon field %d: %w", f.Num, err)
		}
		return nil
	})
}
