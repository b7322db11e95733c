package play

import "sync"

// dispatcher 单工作协程的任务队列。所有触碰会话状态的
// 回调都经由它串行执行，保证任意时刻至多一个在跑。
type dispatcher struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool
}

func newDispatcher() *dispatcher {
	d := &dispatcher{}
	d.cond = sync.NewCond(&d.mu)
	go d.run()
	return d
}

// Post 投递一个任务，按投递顺序执行。
// 调度已停止时返回 false，任务不会执行。
func (d *dispatcher) Post(f func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	d.queue = append(d.queue, f)
	d.cond.Signal()
	return true
}

// Call 投递任务并等待其执行完成。不能在调度协程内调用。
func (d *dispatcher) Call(f func()) bool {
	done := make(chan struct{})
	if !d.Post(func() {
		defer close(done)
		f()
	}) {
		return false
	}
	<-done
	return true
}

func (d *dispatcher) run() {
	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.closed {
			d.cond.Wait()
		}
		if d.closed && len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}
		batch := d.queue
		d.queue = nil
		d.mu.Unlock()

		for _, f := range batch {
			f()
		}
	}
}

// Close 停止调度，已入队任务执行完后工作协程退出
func (d *dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.cond.Signal()
	d.mu.Unlock()
}
