// Package wsclient — транспорт webcast поверх WebSocket (gorilla/websocket).
//
// Одно соединение = одна горутина чтения, один насос записи и, после
// входа в комнату, одна горутина heartbeat.
//
//   - Входящие бинарные кадры разбираются codec.Decoder строго по порядку;
//     gzip распознаётся по сигнатуре.
//   - Если FetchResult требует подтверждения и у кадра есть log id,
//     отправляется ровно один ack (log id + internal_ext).
//   - SwitchRooms сбрасывает счётчик пакетов на 1, шлёт im_enter_room и
//     перезапускает heartbeat (по умолчанию раз в 10s).
//   - Запись идёт через буферизованную очередь: heartbeat и ack никогда
//     не блокируют чтение.
//   - Close (или закрытие со стороны сервера) останавливает heartbeat,
//     сбрасывает счётчик и ровно один раз вызывает OnClose.
//
// Пример:
//
//	c, err := wsclient.Dial(ctx, wsclient.Config{URL: res.WSURL, Params: params})
//	if err != nil { return err }
//	c.OnFetchResult = func(r *codec.FetchResult) { handle(r) }
//	c.OnClose = func(code int, reason string) { log.Println("closed", code, reason) }
//	c.Start()
//	_ = c.SwitchRooms(roomID)
//	defer c.Close()
package wsclient
