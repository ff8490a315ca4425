package worldpb

import (
	"fmt"

	"fulfillment/internal/pkg/proto/pbutil"
)

// Commands is ACommands, the batch sent to World.
type Commands struct {
	Buy        []PurchaseMore
	ToPack     []Pack
	Load       []PutOnTruck
	Queries    []Query
	SimSpeed   *uint32
	Disconnect *bool
	Acks       []int64
}

// Empty reports whether the batch carries nothing worth sending.
func (m *Commands) Empty() bool {
	return len(m.Buy) == 0 && len(m.ToPack) == 0 && len(m.Load) == 0 &&
		len(m.Queries) == 0 && m.SimSpeed == nil && m.Disconnect == nil && len(m.Acks) == 0
}

func (m *Commands) Marshal() ([]byte, error) {
	var b []byte
	for i := range m.Buy {
		b = pbutil.AppendMessage(b, 1, m.Buy[i].appendTo)
	}
	for i := range m.ToPack {
		b = pbutil.AppendMessage(b, 2, m.ToPack[i].appendTo)
	}
	for i := range m.Load {
		b = pbutil.AppendMessage(b, 3, m.Load[i].appendTo)
	}
	for i := range m.Queries {
		b = pbutil.AppendMessage(b, 4, m.Queries[i].appendTo)
	}
	if m.SimSpeed != nil {
		b = pbutil.AppendUint32(b, 5, *m.SimSpeed)
	}
	if m.Disconnect != nil {
		b = pbutil.AppendBool(b, 6, *m.Disconnect)
	}
	for _, ack := range m.Acks {
		b = pbutil.AppendInt64(b, 7, ack)
	}
	return b, nil
}

func (m *Commands) Unmarshal(b []byte) error {
	*m = Commands{}
	return pbutil.Range(b, func(f pbutil.Field) error {
		var err error
		switch f.Num {
		case 1:
			var v PurchaseMore
			err = v.unmarshal(f.Bytes)
			m.Buy = append(m.Buy, v)
		case 2:
			var v Pack
			err = v.unmarshal(f.Bytes)
			m.ToPack = append(m.ToPack, v)
		case 3:
			var v PutOnTruck
			err = v.unmarshal(f.Bytes)
			m.Load = append(m.Load, v)
		case 4:
			var v Query
			err = v.unmarshal(f.Bytes)
			m.Queries = append(m.Queries, v)
		case 5:
			v := f.Uint32()
			m.SimSpeed = &v
		case 6:
			v := f.Bool()
			m.Disconnect = &v
		case 7:
			var acks []int64
			acks, err = f.Int64s()
			m.Acks = append(m.Acks, acks...)
		}
		if err != nil {
			return fmt.Errorf("ACommands field %d: %w", f.Num, err)
		}
		return nil
	})
}

// Responses is AResponses, the batch received from World.
type Responses struct {
	Arrived       []PurchaseMore
	Ready         []Shipment
	Loaded        []Shipment
	Finished      *bool
	Errors        []Err
	Acks          []int64
	PackageStatus []PackageStatus
}

// Seqs returns the sequence numbers of every sub-item, in field order.
func (m *Responses) Seqs() []int64 {
	var seqs []int64
	for _, v := range m.Arrived {
		seqs = append(seqs, v.SeqNum)
	}
	for _, v := range m.Ready {
		seqs = append(seqs, v.SeqNum)
	}
	for _, v := range m.Loaded {
		seqs = append(seqs, v.SeqNum)
	}
	for _, v := range m.Errors {
		seqs = append(seqs, v.SeqNum)
	}
	for _, v := range m.PackageStatus {
		seqs = append(seqs, v.SeqNum)
	}
	return seqs
}

func (m *Responses) Marshal() ([]byte, error) {
	var b []byte
	for i := range m.Arrived {
		b = pbutil.AppendMessage(b, 1, m.Arrived[i].appendTo)
	}
	for i := range m.Ready {
		b = pbutil.AppendMessage(b, 2, m.Ready[i].appendTo)
	}
	for i := range m.Loaded {
		b = pbutil.AppendMessage(b, 3, m.Loaded[i].appendTo)
	}
	if m.Finished != nil {
		b = pbutil.AppendBool(b, 4, *m.Finished)
	}
	for i := range m.Errors {
		b = pbutil.AppendMessage(b, 5, m.Errors[i].appendTo)
	}
	for _, ack := range m.Acks {
		b = pbutil.AppendInt64(b, 6, ack)
	}
	for i := range m.PackageStatus {
		b = pbutil.AppendMessage(b, 7, m.PackageStatus[i].appendTo)
	}
	return b, nil
}

func (m *Responses) Unmarshal(b []byte) error {
	*m = Responses{}
	return pbutil.Range(b, func(f pbutil.Field) error {
		var err error
		switch f.Num {
		case 1:
			var v PurchaseMore
			err = v.unmarshal(f.Bytes)
			m.Arrived = append(m.Arrived, v)
		case 2:
			var v Shipment
			err = v.unmarshal(f.Bytes)
			m.Ready = append(m.Ready, v)
		case 3:
			var v Shipment
			err = v.unmarshal(f.Bytes)
			m.Loaded = append(m.Loaded, v)
		case 4:
			v := f.Bool()
			m.Finished = &v
		case 5:
			var v Err
			err = v.unmarshal(f.Bytes)
			m.Errors = append(m.Errors, v)
		case 6:
			var acks []int64
			acks, err = f.Int64s()
			m.Acks = append(m.Acks, acks...)
		case 7:
			var v PackageStatus
			err = v.unmarshal(f.Bytes)
			m.PackageStatus = append(m.PackageStatus, v)
		}
		if err != nil {
			return fmt.Errorf("AResponses field %d: %w", f.Num, err)
		}
		return nil
	})
}
