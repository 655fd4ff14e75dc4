// etcd-backed Registry.
//
// Layout: key /armlink/cells/{cell}/{addr}, value JSON ControllerInstance.
// Entries are tied to TTL leases so a controller host that dies takes its
// registration with it instead of leaving a ghost arm in the fleet.
package registry

import (
	"context"
	"encoding/json"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const keyPrefix = "/armlink/cells/"

// EtcdRegistry implements Registry on etcd v3.
type EtcdRegistry struct {
	client *clientv3.Client
}

func NewEtcdRegistry(endpoints []string) (*EtcdRegistry, error) {
	c, err := clientv3.New(clientv3.Config{Endpoints: endpoints})
	if err != nil {
		return nil, err
	}
	return &EtcdRegistry{client: c}, nil
}

// Register puts the instance under a TTL lease and keeps renewing it in the
// background. The lease id stays local so multiple registrants can share one
// EtcdRegistry without racing on it.
func (r *EtcdRegistry) Register(cell string, instance ControllerInstance, ttl int64) error {
	ctx := context.TODO()

	lease, err := r.client.Grant(ctx, ttl)
	if err != nil {
		return err
	}

	val, err := json.Marshal(instance)
	if err != nil {
		return err
	}

	_, err = r.client.Put(ctx, keyPrefix+cell+"/"+instance.Addr, string(val), clientv3.WithLease(lease.ID))
	if err != nil {
		return err
	}

	ch, err := r.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return err
	}
	// Drain renewal acks so the channel never fills up.
	go func() {
		for range ch {
		}
	}()
	return nil
}

func (r *EtcdRegistry) Deregister(cell string, addr string) error {
	_, err := r.client.Delete(context.TODO(), keyPrefix+cell+"/"+addr)
	return err
}

// Discover lists all controllers registered in a cell.
func (r *EtcdRegistry) Discover(cell string) ([]ControllerInstance, error) {
	resp, err := r.client.Get(context.TODO(), keyPrefix+cell+"/", clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	instances := make([]ControllerInstance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var instance ControllerInstance
		if err := json.Unmarshal(kv.Value, &instance); err != nil {
			continue // skip malformed entries
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

// Watch re-lists the cell on every change under its prefix. Server-push via
// etcd's Watch API; re-fetching the full list beats parsing event deltas at
// fleet sizes.
func (r *EtcdRegistry) Watch(cell string) <-chan []ControllerInstance {
	ch := make(chan []ControllerInstance, 1)

	go func() {
		watchChan := r.client.Watch(context.TODO(), keyPrefix+cell+"/", clientv3.WithPrefix())
		for range watchChan {
			instances, _ := r.Discover(cell)
			ch <- instances
		}
	}()
	return ch
}
