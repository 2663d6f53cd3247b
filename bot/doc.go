// Package bot plays Xiangqi games automatically over a client connection.
//
// A Player accepts invitations (or declines them), can challenge another
// logged-in player by name, and answers every GAME_START or
// GAME_STATE_UPDATE where it is the side to move with a move picked by its
// Strategy. Greedy looks one ply ahead; Random picks any legal move.
//
// Usage:
//
//	c, _ := client.Dial(ctx, "ws://localhost:8080/ws")
//	c.Login(ctx, "bot", "bot")
//	p := bot.NewPlayer(c, bot.WithMaxGames(3), bot.WithMoveDelay(time.Second))
//	err := p.Run(ctx)
package bot
