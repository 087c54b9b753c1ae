package config

import "net"

func (c *Config) runJobs() {
	c.scheduler.Every(1).Minute().SingletonMode().Do(c.updateIPWhiteList)

	c.scheduler.StartAsync()
}

func (c *Config) updateIPWhiteList() {
	ips, err := c.wdb.GetAllAvailableIpRateWhitelist()
	if err != nil {
		return
	}
	ipWhiteList := make(map[string]struct{}, len(ips))
	for _, ip := range ips {
		if net.ParseIP(ip.IP) == nil {
			continue
		}
		ipWhiteList[ip.IP] = struct{}{}
	}
	c.lock.Lock()
	c.ipWhiteList = ipWhiteList
	c.lock.Unlock()
}
