// Copyright 2016 Aleksandr Demakin. All rights reserved.

package shmobj_test

import (
	shmobj "github.com/nxgtw/go-shmobj"
)

type sensorState struct {
	Temperature float64
	Pressure    float64
	Sequence    uint32
}

func ExampleSharedObject() {
	// the creating process publishes the initial state.
	producer, err := shmobj.New[sensorState]("sensor.state")
	if err != nil {
		panic(err)
	}
	defer producer.Destroy()
	if err = producer.Create(); err != nil {
		panic(err)
	}
	if err = producer.Write(sensorState{Temperature: 20.5, Pressure: 101.3}); err != nil {
		panic(err)
	}

	// another process attaches to the same names.
	consumer, err := shmobj.New[sensorState]("sensor.state")
	if err != nil {
		panic(err)
	}
	defer consumer.Close()
	if err = consumer.Open(); err != nil {
		panic(err)
	}
	state, err := consumer.Read()
	if err != nil {
		panic(err)
	}
	_ = state.Temperature

	// update a single field in place, without a full-value copy.
	view, err := consumer.View()
	if err != nil {
		panic(err)
	}
	defer view.Close()
	err = consumer.Execute(view, func(s *sensorState) error {
		s.Sequence++
		return nil
	})
	if err != nil {
		panic(err)
	}
}
