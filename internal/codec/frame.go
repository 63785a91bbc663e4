package codec

import (
	"fmt"
)

// Типы полезной нагрузки PushFrame.
const (
	EncodingProtobuf = "pb"

	PayloadMessage       = "msg"
	PayloadHeartbeat     = "hb"
	PayloadAck           = "ack"
	PayloadEnterRoom     = "im_enter_room"
	PayloadEnterRoomResp = "im_enter_room_resp"
)

// PushFrame: внешний конверт каждого сообщения в вебсокете.
type PushFrame struct {
	SeqID           uint64            `json:"seqId,omitempty"`
	LogID           uint64            `json:"logId,omitempty"`
	Service         uint64            `json:"service,omitempty"`
	Method          uint64            `json:"method,omitempty"`
	Headers         map[string]string `json:"headers,omitempty"`
	PayloadEncoding string            `json:"payloadEncoding"`
	PayloadType     string            `json:"payloadType"`
	Payload         []byte            `json:"-"`
}

// NewPushFrame: кадр с кодировкой pb и заданным типом.
func NewPushFrame(payloadType string, payload []byte) *PushFrame {
	return &PushFrame{
		PayloadEncoding: EncodingProtobuf,
		PayloadType:     payloadType,
		Payload:         payload,
	}
}

// Marshal кодирует кадр; нулевые поля не пишутся.
func (f *PushFrame) Marshal() []byte {
	var b []byte
	b = appendVarint(b, 1, f.SeqID)
	b = appendVarint(b, 2, f.LogID)
	b = appendVarint(b, 3, f.Service)
	b = appendVarint(b, 4, f.Method)
	b = appendMap(b, 5, f.Headers)
	b = appendString(b, 6, f.PayloadEncoding)
	b = appendString(b, 7, f.PayloadType)
	b = appendBytes(b, 8, f.Payload)
	return b
}

func (f *PushFrame) Unmarshal(b []byte) error {
	return eachField(b, func(fl field) (err error) {
		switch fl.num {
		case 1:
			f.SeqID, err = fl.uint()
		case 2:
			f.LogID, err = fl.uint()
		case 3:
			f.Service, err = fl.uint()
		case 4:
			f.Method, err = fl.uint()
		case 5:
			if f.Headers == nil {
				f.Headers = map[string]string{}
			}
			err = mapEntry(fl, f.Headers)
		case 6:
			f.PayloadEncoding, err = fl.str()
		case 7:
			f.PayloadType, err = fl.str()
		case 8:
			f.Payload, err = fl.bytes()
		}
		return err
	})
}

// DecodedFrame: кадр плюс разобранный ProtoMessageFetchResult (если был).
type DecodedFrame struct {
	*PushFrame
	FetchResult *FetchResult
}

// DecodeFrame разбирает бинарное сообщение вебсокета: сначала кадр, затем,
// если кодировка pb, распаковывает gzip (по сигнатуре 1f 8b 08) и
// декодирует вложенный ProtoMessageFetchResult.
func (d *Decoder) DecodeFrame(data []byte) (*DecodedFrame, error) {
	var frame PushFrame
	if err := frame.Unmarshal(data); err != nil {
		return nil, d.decodeErr(TypePushFrame, data, err)
	}
	out := &DecodedFrame{PushFrame: &frame}

	if frame.PayloadEncoding != EncodingProtobuf || len(frame.Payload) == 0 {
		return out, nil
	}

	if IsGzip(frame.Payload) {
		plain, err := Gunzip(frame.Payload)
		if err != nil {
			return nil, d.decodeErr(TypePushFrame, data, fmt.Errorf("gunzip payload: %w", err))
		}
		frame.Payload = plain
	}

	switch frame.PayloadType {
	case PayloadHeartbeat, PayloadAck:
		// ответы на служебные кадры FetchResult не содержат
		return out, nil
	case PayloadMessage:
		res, err := d.DecodeFetchResult(frame.Payload)
		if err != nil {
			return nil, err
		}
		out.FetchResult = res
	default:
		// im_enter_room_resp и прочее: FetchResult бывает, а бывает и нет
		if res, err := d.DecodeFetchResult(frame.Payload); err == nil {
			out.FetchResult = res
		}
	}
	return out, nil
}
