// Package codec реализует бинарный протокол webcast поверх protobuf
// (google.golang.org/protobuf/encoding/protowire, без сгенерированного кода).
//
// Уровни:
//   - PushFrame — внешний конверт каждого кадра вебсокета;
//   - FetchResult (ProtoMessageFetchResult) — пачка событийных сообщений,
//     курсор и internal_ext для ack;
//   - сами сообщения: WebcastChatMessage, WebcastGiftMessage и т.д.
//
// Сжатие протокол не объявляет: полезная нагрузка считается gzip, если
// начинается с 1f 8b 08.
//
// Decoder держит реестр известных типов. Неизвестные и пропускаемые
// (SkipTypes) сообщения остаются сырыми, ошибка одного вложенного
// сообщения не ломает всю пачку.
//
// Пример:
//
//	dec := codec.NewDecoder()
//	frame, err := dec.DecodeFrame(data)
//	if err != nil { return err }
//	if frame.FetchResult != nil {
//	    for _, m := range frame.FetchResult.Messages {
//	        if chat, ok := m.Decoded.(*codec.ChatMessage); ok {
//	            fmt.Println(chat.User.Nickname, chat.Content)
//	        }
//	    }
//	}
package codec
