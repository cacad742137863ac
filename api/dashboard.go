package api

// dashboardHTML is the built-in single-page dashboard, served when no
// ./web directory exists. It talks only to the JSON API and the /ws
// event feed.
const dashboardHTML = `<!DOCTYPE html>
<html>
<head>
<title>PV Forecast Comparison</title>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<script src="https://cdn.jsdelivr.net/npm/chart.js"></script>
<style>
body { font-family: system-ui, sans-serif; margin: 20px; background: #f8f9fa; }
.container { max-width: 1100px; margin: 0 auto; }
.card { background: white; padding: 20px; margin: 10px 0; border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
.button { background: #007cba; color: white; padding: 8px 16px; border: none; border-radius: 5px; cursor: pointer; margin: 4px; }
.button:hover { background: #005a87; }
.button:disabled { background: #ccc; cursor: not-allowed; }
.grid { display: grid; grid-template-columns: 1fr 1fr; gap: 20px; }
.chart-container { position: relative; height: 340px; }
.data-grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(180px, 1fr)); gap: 10px; }
.data-item { background: #f8f9fa; padding: 10px; border-radius: 5px; text-align: center; }
.data-value { font-size: 1.3em; font-weight: bold; color: #007cba; }
.data-label { font-size: 0.85em; color: #666; }
.accuracy { font-weight: bold; }
.accuracy.good { color: #28a745; }
.accuracy.warning { color: #ffc107; }
.accuracy.poor { color: #dc3545; }
.accuracy.none { color: #999; }
#status { font-size: 0.95em; }
</style>
</head>
<body>
<div class="container">
  <div class="card">
    <h1>PV Forecast Comparison</h1>
    <div id="buttons"></div>
  </div>
  <div class="grid">
    <div class="card"><h2>Today</h2><div class="chart-container"><canvas id="todayChart"></canvas></div></div>
    <div class="card"><h2>History</h2><div class="chart-container"><canvas id="dailyChart"></canvas></div></div>
  </div>
  <div class="card"><h2>Data Points</h2><div class="data-grid" id="dataGrid"></div></div>
  <div class="card"><h2>System Status</h2><div id="status"></div></div>
</div>
<script>
var todayChart, dailyChart, slots = [];

function collect(slot) {
  fetch('/api/collect', {
    method: 'POST',
    headers: {'Content-Type': 'application/json'},
    body: JSON.stringify({time_slot: slot})
  }).then(function() { refresh(); });
}

function renderButtons() {
  var html = '';
  slots.forEach(function(s) {
    html += '<button class="button" onclick="collect(' + "'" + s + "'" + ')">Collect ' + s + '</button>';
  });
  document.getElementById('buttons').innerHTML = html;
}

function loadStatus() {
  fetch('/api/status').then(function(r) { return r.json(); }).then(function(st) {
    var html = '<div>Records: ' + st.db_records + ' | Last update: ' + st.last_update + '</div>';
    (st.slots || []).forEach(function(s) {
      html += '<div>' + s.time_slot + ' @ ' + s.at + ': ' + s.state +
        (s.next_fire ? ' (next ' + s.next_fire + ')' : '') + '</div>';
    });
    document.getElementById('status').innerHTML = html;
  });
}

function loadData() {
  fetch('/api/data').then(function(r) { return r.json(); }).then(function(data) {
    slots = [];
    var labels = [], forecast = [], actual = [], html = '';
    (data.scores || []).forEach(function(s) {
      if (s.time_slot !== 'daily') {
        slots.push(s.time_slot);
        labels.push(s.time_slot);
        forecast.push(s.forecast);
        actual.push(s.actual);
      }
      html += '<div class="data-item"><div class="data-label">' + s.time_slot.toUpperCase() + '</div>' +
        '<div class="data-value">' + s.forecast.toFixed(1) + ' Wh</div><div class="data-label">Forecast</div>' +
        '<div class="data-value">' + s.actual.toFixed(1) + ' Wh</div><div class="data-label">Actual</div>' +
        '<div class="accuracy ' + s.grade + '">' + s.accuracy + '%</div></div>';
    });
    document.getElementById('dataGrid').innerHTML = html;
    renderButtons();
    drawBar(labels, forecast, actual);
  });
}

function drawBar(labels, forecast, actual) {
  if (todayChart) todayChart.destroy();
  todayChart = new Chart(document.getElementById('todayChart'), {
    type: 'bar',
    data: { labels: labels, datasets: [
      { label: 'Forecast (Wh)', data: forecast, backgroundColor: 'rgba(54,162,235,0.6)' },
      { label: 'Actual (Wh)', data: actual, backgroundColor: 'rgba(75,192,192,0.6)' }
    ]},
    options: { responsive: true, maintainAspectRatio: false, scales: { y: { beginAtZero: true } } }
  });
}

function loadHistorical() {
  fetch('/api/historical?days=7').then(function(r) { return r.json(); }).then(function(data) {
    if (dailyChart) dailyChart.destroy();
    dailyChart = new Chart(document.getElementById('dailyChart'), {
      type: 'line',
      data: { labels: data.dates || [], datasets: [
        { label: 'Daily Forecast (Wh)', data: data.forecast || [], borderColor: 'rgba(54,162,235,1)' },
        { label: 'Daily Actual (Wh)', data: data.actual || [], borderColor: 'rgba(75,192,192,1)' }
      ]},
      options: { responsive: true, maintainAspectRatio: false, scales: { y: { beginAtZero: true } } }
    });
  });
}

function refresh() { loadStatus(); loadData(); loadHistorical(); }

function connectEvents() {
  var proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
  var sock = new WebSocket(proto + location.host + '/ws');
  sock.onmessage = function() { refresh(); };
  sock.onclose = function() { setTimeout(connectEvents, 5000); };
}

refresh();
connectEvents();
setInterval(refresh, 30000);
</script>
</body>
</html>`
