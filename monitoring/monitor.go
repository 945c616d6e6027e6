// Package monitoring exposes a running network over HTTP so that routing
// tables, link queues and convergence can be inspected while it runs.
package monitoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/sirupsen/logrus"
	"github.com/syifan/goseth"

	"github.com/sarchlab/stackroute/link"
	"github.com/sarchlab/stackroute/network"
	"github.com/sarchlab/stackroute/sim/id"
)

// Monitor turns a running network into an HTTP server.
type Monitor struct {
	net        *network.Network
	portNumber int
	log        logrus.FieldLogger

	profileDuration time.Duration

	addrLock sync.Mutex
	addr     string

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		log:             logrus.StandardLogger(),
		profileDuration: time.Second,
	}
}

// WithPortNumber sets the port number of the monitor. Ports below 1000 are
// refused and a random port is used instead.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		m.log.WithField("port", portNumber).
			Warn("port not allowed for the monitor, using a random port")

		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithLogger sets the logger of the monitor.
func (m *Monitor) WithLogger(l logrus.FieldLogger) *Monitor {
	m.log = l
	return m
}

// WithProfileDuration sets how long /api/profile samples the CPU.
func (m *Monitor) WithProfileDuration(d time.Duration) *Monitor {
	m.profileDuration = d
	return m
}

// RegisterNetwork registers the network to monitor.
func (m *Monitor) RegisterNetwork(n *network.Network) {
	m.net = n
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        id.Default().Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Handler returns the router serving the monitor API.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/nodes", m.listNodes)
	r.HandleFunc("/api/node/{id}", m.nodeDetails)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/table/{id}", m.routingTable)
	r.HandleFunc("/api/stats", m.listStats)
	r.HandleFunc("/api/convergence", m.convergence)
	r.HandleFunc("/api/links", m.listLinks)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	return r
}

// StartServer starts serving the monitor in the background and returns the
// address it listens on.
func (m *Monitor) StartServer() string {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	addr := fmt.Sprintf("localhost:%d", listener.Addr().(*net.TCPAddr).Port)

	m.addrLock.Lock()
	m.addr = addr
	m.addrLock.Unlock()

	m.log.WithField("url", "http://"+addr).Info("monitoring network")

	server := &http.Server{
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		err := server.Serve(listener)
		if !errors.Is(err, http.ErrServerClosed) {
			dieOnErr(err)
		}
	}()

	return addr
}

// OpenBrowser opens the monitor in the default browser. The server must have
// been started.
func (m *Monitor) OpenBrowser() error {
	m.addrLock.Lock()
	addr := m.addr
	m.addrLock.Unlock()

	if addr == "" {
		return errors.New("monitoring: server not started")
	}

	return browser.OpenURL("http://" + addr + "/api/convergence")
}

func (m *Monitor) listNodes(w http.ResponseWriter, _ *http.Request) {
	if !m.networkOr503(w) {
		return
	}

	writeJSON(w, m.net.Nodes())
}

func (m *Monitor) nodeDetails(w http.ResponseWriter, r *http.Request) {
	n := m.findNodeOr404(w, mux.Vars(r)["id"])
	if n == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(n)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type fieldReq struct {
	NodeName  string `json:"node_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	req := fieldReq{}

	err := json.Unmarshal([]byte(mux.Vars(r)["json"]), &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n := m.findNodeOr404(w, req.NodeName)
	if n == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(n)
	serializer.SetMaxDepth(1)

	err = serializer.SetEntryPoint(strings.Split(req.FieldName, "."))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = serializer.Serialize(w)
	dieOnErr(err)
}

type tableRowRsp struct {
	Dest     string `json:"dest"`
	Stack    string `json:"stack"`
	NextHop  string `json:"next_hop"`
	Function string `json:"function"`
	Cost     int    `json:"cost"`
}

func (m *Monitor) routingTable(w http.ResponseWriter, r *http.Request) {
	n := m.findNodeOr404(w, mux.Vars(r)["id"])
	if n == nil {
		return
	}

	owner, ok := n.(network.TableOwner)
	if !ok {
		http.Error(w, "node has no routing table", http.StatusNotFound)
		return
	}

	rows := owner.Table().Rows()
	rsp := make([]tableRowRsp, 0, len(rows))

	for _, row := range rows {
		rsp = append(rsp, tableRowRsp{
			Dest:     row.Dest,
			Stack:    row.Stack.Compact(),
			NextHop:  row.NextHop,
			Function: row.Function.Notation(),
			Cost:     row.Cost,
		})
	}

	writeJSON(w, rsp)
}

type statsRsp struct {
	Node         string `json:"node"`
	ConfSent     uint64 `json:"conf_sent"`
	ConfReceived uint64 `json:"conf_received"`
	MsgRouted    uint64 `json:"msg_routed"`
	MsgDelivered uint64 `json:"msg_delivered"`
	MsgDropped   uint64 `json:"msg_dropped"`
}

func (m *Monitor) listStats(w http.ResponseWriter, _ *http.Request) {
	if !m.networkOr503(w) {
		return
	}

	rsp := []statsRsp{}

	for _, nodeID := range m.net.Nodes() {
		reporter, ok := m.net.Node(nodeID).(network.StatsReporter)
		if !ok {
			continue
		}

		s := reporter.Stats()
		rsp = append(rsp, statsRsp{
			Node:         nodeID,
			ConfSent:     s.ConfSent,
			ConfReceived: s.ConfReceived,
			MsgRouted:    s.MsgRouted,
			MsgDelivered: s.MsgDelivered,
			MsgDropped:   s.MsgDropped,
		})
	}

	writeJSON(w, rsp)
}

type convergenceRsp struct {
	Name              string  `json:"name"`
	Running           bool    `json:"running"`
	Converged         bool    `json:"converged"`
	ConvergenceTimeMS float64 `json:"convergence_time_ms"`
	ElapsedMS         float64 `json:"elapsed_ms"`
	DurationMS        float64 `json:"duration_ms"`
	Sent              uint64  `json:"sent"`
	InFlight          int64   `json:"in_flight"`
}

func (m *Monitor) convergence(w http.ResponseWriter, _ *http.Request) {
	if !m.networkOr503(w) {
		return
	}

	writeJSON(w, convergenceRsp{
		Name:              m.net.Name(),
		Running:           m.net.Running(),
		Converged:         m.net.Converged(),
		ConvergenceTimeMS: millis(m.net.ConvergenceTime()),
		ElapsedMS:         millis(m.net.Elapsed()),
		DurationMS:        millis(m.net.Duration()),
		Sent:              m.net.Sent(),
		InFlight:          m.net.InFlight(),
	})
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

type linkRsp struct {
	Link  string `json:"link"`
	Level int    `json:"level"`
	Cap   int    `json:"cap"`
}

func (m *Monitor) listLinks(w http.ResponseWriter, r *http.Request) {
	if !m.networkOr503(w) {
		return
	}

	sortMethod, limit, offset, err := linksParseParams(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	links := sortAndSelectLinks(m.net.Links(), sortMethod, limit, offset)

	rsp := make([]linkRsp, 0, len(links))
	for _, l := range links {
		rsp = append(rsp, linkRsp{Link: l.Name(), Level: l.Len(), Cap: l.Capacity()})
	}

	writeJSON(w, rsp)
}

func linksParseParams(
	r *http.Request,
) (sortMethod string, limit, offset int, err error) {
	sortMethod = r.URL.Query().Get("sort")
	if sortMethod == "" {
		sortMethod = "percent"
	}

	if sortMethod != "level" && sortMethod != "percent" {
		return "", 0, 0, fmt.Errorf(
			"invalid sort method: %s. Allowed values are `level` and `percent`",
			sortMethod)
	}

	limit, err = intParam(r, "limit")
	if err != nil {
		return sortMethod, 0, 0, err
	}

	offset, err = intParam(r, "offset")
	if err != nil {
		return sortMethod, limit, 0, err
	}

	if limit < 0 || offset < 0 {
		return sortMethod, 0, 0, errors.New("limit and offset must not be negative")
	}

	return sortMethod, limit, offset, nil
}

func intParam(r *http.Request, name string) (int, error) {
	str := r.URL.Query().Get(name)
	if str == "" {
		return 0, nil
	}

	return strconv.Atoi(str)
}

func linkPercent(l *link.Link) float64 {
	return float64(l.Len()) / float64(l.Capacity())
}

// sortAndSelectLinks orders links from the fullest to the emptiest. A limit
// of 0 returns every link after offset.
func sortAndSelectLinks(
	links []*link.Link,
	sortMethod string,
	limit, offset int,
) []*link.Link {
	type level struct {
		l       *link.Link
		size    int
		percent float64
	}

	levels := make([]level, len(links))
	for i, l := range links {
		levels[i] = level{l: l, size: l.Len(), percent: linkPercent(l)}
	}

	switch sortMethod {
	case "level":
		sort.SliceStable(levels, func(i, j int) bool {
			if levels[i].size != levels[j].size {
				return levels[i].size > levels[j].size
			}

			return levels[i].percent > levels[j].percent
		})
	case "percent":
		sort.SliceStable(levels, func(i, j int) bool {
			if levels[i].percent != levels[j].percent {
				return levels[i].percent > levels[j].percent
			}

			return levels[i].size > levels[j].size
		})
	default:
		panic("invalid sort method " + sortMethod)
	}

	if offset > len(levels) {
		offset = len(levels)
	}

	end := len(levels)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	selected := make([]*link.Link, 0, end-offset)
	for _, lv := range levels[offset:end] {
		selected = append(selected, lv.l)
	}

	return selected
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]progressSnapshot, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(m.profileDuration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func (m *Monitor) networkOr503(w http.ResponseWriter) bool {
	if m.net == nil {
		http.Error(w, "no network registered", http.StatusServiceUnavailable)
		return false
	}

	return true
}

func (m *Monitor) findNodeOr404(
	w http.ResponseWriter,
	nodeID string,
) network.Node {
	if !m.networkOr503(w) {
		return nil
	}

	n := m.net.Node(nodeID)
	if n == nil {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Node not found"))
		dieOnErr(err)

		return nil
	}

	return n
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
