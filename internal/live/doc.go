// Package live — подключение к эфиру пользователя: поиск комнаты,
// подписанный вебсокет, разбор сообщений и раздача событий.
//
// Состояния: StateDisconnected → StateConnecting → StateConnected. Второй
// Connect во время подключения или после него отклоняется. Повторных
// попыток нет: решение переподключаться остаётся за вызывающим.
//
// Connect по шагам:
//   - room id (аргумент, кэш или резолвер: html → api → cloud → custom);
//   - снимок комнаты, если FetchRoomInfoOnConnect (завершённый эфир —
//     *UserOfflineError);
//   - каталог подарков, если EnableExtendedGiftInfo;
//   - начальный FetchResult (провайдер вызывающего, облако, свой сервис);
//   - вебсокет (не дольше ConnectTimeout), вход в комнату, heartbeat.
//
// Каждое декодированное сообщение сначала уходит как DecodedData, затем
// как событие своей категории. ControlMessage с концом эфира даёт Control,
// StreamEnd и отключение.
//
// Пример:
//
//	conn, err := live.New("@alice", live.DefaultOptions())
//	if err != nil { return err }
//	conn.Subscribe(func(e events.Event) {
//	    chat := e.(events.Message).Data.(*codec.ChatMessage)
//	    fmt.Println(chat.User.Nickname, chat.Content)
//	}, events.KindChat)
//	if _, err := conn.Connect(ctx, ""); err != nil { return err }
//	defer conn.Disconnect()
package live
