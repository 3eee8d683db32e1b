// Package websocket pushes live game updates to browsers.
//
// A Hub groups connections by session ID. After every state-changing request
// the API calls BroadcastToSession with the new state, and the Hub, as a
// service observer, also forwards each game event (move, new_best,
// game_over and so on). Clients connect with /ws?session=<id>. Incoming
// messages are ignored; the socket is push only.
//
//	hub := websocket.NewHub()
//	go hub.Run()
//	svc := service.NewGameService(sessions, configs, service.WithObservers(hub))
package websocket
