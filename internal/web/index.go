package web

import (
	"html/template"
	"net/http"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: monospace; margin: 1em; }
#traffic div.TX { color: #0645ad; }
#traffic div.RX { color: #1a7f37; }
#traffic div.URC { color: #9a6700; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>PSM state: <b id="state">{{.State}}</b></p>
<form id="send">
<input id="command" size="40" placeholder="AT" autofocus>
<button type="submit">Send</button>
</form>
<div id="traffic"></div>
<script>
const traffic = document.getElementById('traffic');
const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
ws.onmessage = (ev) => {
  const msg = JSON.parse(ev.data);
  if (msg.type !== 'traffic') return;
  const e = msg.data;
  const div = document.createElement('div');
  div.className = e.direction;
  div.textContent = e.timestamp + ' ' + e.direction + ' ' + JSON.stringify(e.data);
  traffic.prepend(div);
};
document.getElementById('send').onsubmit = async (ev) => {
  ev.preventDefault();
  const input = document.getElementById('command');
  const res = await fetch('/api/send', {method: 'POST', body: JSON.stringify({command: input.value})});
  const result = await res.json();
  document.getElementById('state').textContent = result.state;
  input.value = '';
};
</script>
</body>
</html>
`))

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	data := struct {
		Title string
		State string
	}{
		Title: "PSM Modem Console",
		State: s.sender.State().String(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		s.logger.Printf("Error rendering index: %v", err)
	}
}
