// Package webcast — публичный вход в клиент: подключение к эфиру,
// события аудитории и типы сообщений. Реализация живёт в internal/,
// здесь только псевдонимы и конструкторы.
//
// Пример:
//
//	conn, err := webcast.New("@alice", webcast.DefaultOptions())
//	if err != nil {
//		log.Fatal(err)
//	}
//	conn.Subscribe(func(e webcast.Event) {
//		msg := e.(webcast.MessageEvent)
//		chat := msg.Data.(*webcast.ChatMessage)
//		fmt.Println(chat.User.Nickname, chat.Content)
//	}, webcast.KindChat)
//
//	if _, err := conn.Connect(ctx, ""); err != nil {
//		var offline *webcast.UserOfflineError
//		if errors.As(err, &offline) {
//			// эфира нет
//		}
//		log.Fatal(err)
//	}
//	defer conn.Disconnect()
package webcast
