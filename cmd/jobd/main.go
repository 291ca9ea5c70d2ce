// jobd 按配置文件周期性执行 shell 命令的守护进程.
//
// 用法:
//
//	jobd run -c /etc/jobd/config.yaml
//	jobd validate -c /etc/jobd/config.yaml
package main

import "os"

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
