package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// dashboardHandler serves a small operator page for inspecting the caller's
// sessions and watching security alerts live.
func dashboardHandler(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, dashboardHTML)
}

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>LinkedHer Sessions</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body { font-family: -apple-system, 'Segoe UI', sans-serif; background: #09090b; color: #fafafa; font-size: 14px; padding: 24px; }
        .mono { font-family: 'SF Mono', Menlo, monospace; }
        h1 { font-size: 18px; margin-bottom: 16px; }
        h2 { font-size: 14px; color: #a1a1aa; margin: 24px 0 8px; }
        input { background: #18181b; border: 1px solid #27272a; color: #fafafa; padding: 8px 10px; border-radius: 6px; width: 420px; }
        button { background: #27272a; border: 1px solid #3f3f46; color: #fafafa; padding: 8px 14px; border-radius: 6px; cursor: pointer; margin-left: 8px; }
        button:hover { background: #3f3f46; }
        button.danger { border-color: #7f1d1d; color: #fca5a5; }
        table { width: 100%; border-collapse: collapse; margin-top: 8px; }
        th, td { text-align: left; padding: 8px 10px; border-bottom: 1px solid #27272a; }
        th { color: #71717a; font-weight: 500; font-size: 12px; text-transform: uppercase; }
        .status-active { color: #22c55e; }
        .status-suspicious { color: #f59e0b; }
        .risk-high { color: #ef4444; }
        #alerts div { padding: 6px 10px; border-left: 2px solid #f59e0b; margin-bottom: 6px; background: #18181b; }
        .muted { color: #52525b; }
    </style>
</head>
<body>
    <h1>Session Security</h1>
    <div>
        <input id="key" type="password" placeholder="API key (lk_...)">
        <button onclick="load()">Load sessions</button>
        <button class="danger" onclick="revokeOthers()">Revoke other sessions</button>
    </div>

    <h2>Active sessions</h2>
    <table>
        <thead><tr><th>ID</th><th>Device</th><th>Country</th><th>Risk</th><th>Status</th><th></th></tr></thead>
        <tbody id="sessions"><tr><td colspan="6" class="muted">Enter an API key to load sessions.</td></tr></tbody>
    </table>

    <h2>Live alerts</h2>
    <div id="alerts"><span class="muted">Not connected.</span></div>

    <script>
        let ws = null;

        function key() { return document.getElementById('key').value.trim(); }
        function headers() { return { 'Authorization': 'Bearer ' + key() }; }

        async function load() {
            const res = await fetch('/v1/sessions', { headers: headers() });
            const data = await res.json();
            const tbody = document.getElementById('sessions');
            if (!res.ok) {
                tbody.innerHTML = '<tr><td colspan="6" class="muted">' + (data.message || 'request failed') + '</td></tr>';
                return;
            }
            tbody.innerHTML = data.sessions.map(s =>
                '<tr>' +
                '<td class="mono">' + s.id + '</td>' +
                '<td>' + (s.device || '-') + '</td>' +
                '<td>' + ((s.location && s.location.country) || '-') + '</td>' +
                '<td class="' + (s.riskScore > 70 ? 'risk-high' : '') + '">' + s.riskScore + '</td>' +
                '<td class="status-' + s.status + '">' + s.status + '</td>' +
                '<td><button class="danger" onclick="revoke(\'' + s.id + '\')">Revoke</button></td>' +
                '</tr>'
            ).join('') || '<tr><td colspan="6" class="muted">No active sessions.</td></tr>';
            connect();
        }

        async function revoke(id) {
            await fetch('/v1/sessions/' + id, { method: 'DELETE', headers: headers() });
            load();
        }

        async function revokeOthers() {
            await fetch('/v1/sessions', { method: 'DELETE', headers: headers() });
            load();
        }

        function connect() {
            if (ws) return;
            const proto = location.protocol === 'https:' ? 'wss' : 'ws';
            ws = new WebSocket(proto + '://' + location.host + '/v1/alerts/ws?api_key=' + encodeURIComponent(key()));
            const box = document.getElementById('alerts');
            ws.onopen = () => { box.innerHTML = '<span class="muted">Connected, waiting for events.</span>'; };
            ws.onmessage = (ev) => {
                const e = JSON.parse(ev.data);
                const div = document.createElement('div');
                div.textContent = e.timestamp + '  ' + e.type + '  ' + JSON.stringify(e.data);
                if (box.firstChild && box.firstChild.tagName !== 'DIV') box.innerHTML = '';
                box.prepend(div);
                load();
            };
            ws.onclose = () => { ws = null; };
        }
    </script>
</body>
</html>`
