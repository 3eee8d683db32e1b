// Package api serves the game over HTTP.
//
// Routes live under /api and speak JSON:
//
//	POST   /api/sessions                  create a session ({"config_id": "classic"})
//	GET    /api/sessions                  list sessions (?sort=accessed|created|score&order=asc|desc&limit=N)
//	GET    /api/sessions/{id}             session info with current state
//	DELETE /api/sessions/{id}             delete a session
//	GET    /api/sessions/{id}/state       current state
//	POST   /api/sessions/{id}/move        {"direction": "left"}
//	POST   /api/sessions/{id}/bulk-move   {"moves": ["up", "left"]}
//	POST   /api/sessions/{id}/undo        take back the last board-changing move
//	POST   /api/sessions/{id}/new         start over, keeping the best score
//	POST   /api/sessions/{id}/autoplay    {"strategy": "expectimax", "steps": 10}
//	GET    /api/sessions/{id}/history     paginated move log (?page&limit&order)
//	GET    /api/sessions/{id}/export      save file download (?format=yaml)
//	POST   /api/sessions/{id}/import      raw JSON/YAML body or multipart "file"
//	GET    /api/configs                   rule variants
//	GET    /api/i18n                      UI strings (?lang= or Accept-Language)
//	GET    /api/health
//
// /ws?session=<id> upgrades to a WebSocket that receives state pushes.
//
// Errors come back as {"error": "..."}: 404 for unknown sessions or
// variants, 400 for bad input, 409 when there is nothing to undo. Rejected
// imports answer 400 with the localized "invalid file" text and leave the
// session untouched.
package api
