package sql

import "time"

// JobInstanceEntity is the row of batch_job_instance.
type JobInstanceEntity struct {
	ID             string    `gorm:"primaryKey;size:36"`
	JobName        string    `gorm:"size:255;not null;index:idx_job_instance_key,unique"`
	ParametersHash string    `gorm:"size:64;not null;index:idx_job_instance_key,unique"`
	Parameters     string    `gorm:"type:text"`
	CreateTime     time.Time `gorm:"not null"`
	Version        int       `gorm:"not null;default:0"`
}

func (JobInstanceEntity) TableName() string {
	return "batch_job_instance"
}

// JobExecutionEntity is the row of batch_job_execution. Parameters, Failures and ExecutionContext
// hold JSON documents.
type JobExecutionEntity struct {
	ID               string     `gorm:"primaryKey;size:36"`
	JobInstanceID    string     `gorm:"size:36;not null;index"`
	JobName          string     `gorm:"size:255;not null"`
	Parameters       string     `gorm:"type:text"`
	StartTime        time.Time  `gorm:"not null"`
	EndTime          *time.Time
	Status           string     `gorm:"size:20;not null"`
	ExitStatus       string     `gorm:"size:20;not null"`
	ExitCode         int        `gorm:"not null;default:0"`
	Failures         string     `gorm:"type:text"`
	Version          int        `gorm:"not null;default:0"`
	CreateTime       time.Time  `gorm:"not null"`
	LastUpdated      time.Time  `gorm:"not null"`
	ExecutionContext string     `gorm:"type:text"`
	CurrentStepName  string     `gorm:"size:255"`
}

func (JobExecutionEntity) TableName() string {
	return "batch_job_execution"
}

// StepExecutionEntity is the row of batch_step_execution.
type StepExecutionEntity struct {
	ID               string     `gorm:"primaryKey;size:36"`
	StepName         string     `gorm:"size:255;not null"`
	JobExecutionID   string     `gorm:"size:36;not null;index"`
	StartTime        time.Time  `gorm:"not null"`
	EndTime          *time.Time
	Status           string     `gorm:"size:20;not null"`
	ExitStatus       string     `gorm:"size:20;not null"`
	Failures         string     `gorm:"type:text"`
	ReadCount        int        `gorm:"not null;default:0"`
	WriteCount       int        `gorm:"not null;default:0"`
	FilterCount      int        `gorm:"not null;default:0"`
	ExecutionContext string     `gorm:"type:text"`
	LastUpdated      time.Time  `gorm:"not null"`
	Version          int        `gorm:"not null;default:0"`
}

func (StepExecutionEntity) TableName() string {
	return "batch_step_execution"
}

// entities lists the tables created by AutoMigrate.
var entities = []interface{}{
	&JobInstanceEntity{},
	&JobExecutionEntity{},
	&StepExecutionEntity{},
}
