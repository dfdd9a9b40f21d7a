package config

type config struct {
	Mysql    mysql    `yaml:"mysql" mapstructure:"mysql"`
	Redis    redis    `yaml:"redis" mapstructure:"redis"`
	Etcd     etcd     `yaml:"etcd" mapstructure:"etcd"`
	RabbitMq rabbitmq `yaml:"rabbitmq" mapstructure:"rabbitmq"`
	Rpc      rpc      `yaml:"rpc" mapstructure:"rpc"`
}

type mysql struct {
	Addr     string `yaml:"addr"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Charset  string `yaml:"charset"`
}

type redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
}

type etcd struct {
	Addr string `yaml:"addr"`
}

type rabbitmq struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type rpc struct {
	IdlDir          string `yaml:"idl_dir"`
	InteractionAddr string `yaml:"interaction_addr"`
	VideoAddr       string `yaml:"video_addr"`
}
